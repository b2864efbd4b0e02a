package plugin

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/spf13/afero"
)

const signatureEntryName = "META-INF/SIGNATURE.asc"

// ComputeChecksum computes the SHA-256 of the bundle file. Nothing
// compares this against an expected value yet — no bundle-format field
// carries one; the comparison is deliberately left as a placeholder
// pending a future metadata extension rather than inventing a
// comparison target the format doesn't carry.
func ComputeChecksum(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkIntegrity runs step 2 of the validator: compute the checksum,
// surfacing I/O failure as IntegrityCheckError/High. Comparison against an
// expected checksum is a no-op until bundle metadata carries one — see
// the open question this preserves from the source.
func checkIntegrity(fsys afero.Fs, path string) []Violation {
	if _, err := ComputeChecksum(fsys, path); err != nil {
		return []Violation{newViolation(KindIntegrityCheckError, SeverityHigh,
			"failed to compute bundle checksum: "+err.Error(), nil)}
	}
	return nil
}

// harvestCertificates collects the union of OpenPGP certificates attached
// to a bundle. A bundle carries its signature as a single detached,
// armored OpenPGP signature at META-INF/SIGNATURE.asc whose signer
// entities are treated as the bundle's "certificates" — a JAR-style
// per-entry-certificate model reinterpreted for an OpenPGP-signed
// archive. Every non-directory, non-META-INF entry is still streamed in
// full to mirror the "force a read of each entry to trigger certificate
// discovery" step even though, for a detached signature, discovery
// itself only depends on the signature entry.
func harvestCertificates(insp *BundleInspector) ([]*openpgp.Entity, error) {
	for _, e := range insp.Entries() {
		if e.IsDirectory || strings.HasPrefix(e.Name, "META-INF/") {
			continue
		}
		if _, err := insp.ReadEntry(e); err != nil {
			return nil, err
		}
	}

	sigEntry, ok := findEntry(insp, signatureEntryName)
	if !ok {
		return nil, nil
	}

	data, err := insp.ReadEntry(sigEntry)
	if err != nil {
		return nil, err
	}

	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var entities []*openpgp.Entity
	pr := packet.NewReader(block.Body)
	for {
		p, err := pr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if sig, ok := p.(*packet.Signature); ok && sig.IssuerKeyId != nil {
			// A detached signature packet alone carries no public key
			// material; in this core the signing entity is resolved from
			// a sibling META-INF/CERT.asc entry carrying the armored
			// public key, looked up by key id.
			if ent, ok := resolveSignerEntity(insp, *sig.IssuerKeyId); ok {
				entities = append(entities, ent)
			}
		}
	}
	return entities, nil
}

func findEntry(insp *BundleInspector, name string) (BundleEntry, bool) {
	for _, e := range insp.Entries() {
		if e.Name == name {
			return e, true
		}
	}
	return BundleEntry{}, false
}

func resolveSignerEntity(insp *BundleInspector, keyID uint64) (*openpgp.Entity, bool) {
	certEntry, ok := findEntry(insp, "META-INF/CERT.asc")
	if !ok {
		return nil, false
	}
	data, err := insp.ReadEntry(certEntry)
	if err != nil {
		return nil, false
	}
	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	entities, err := openpgp.ReadKeyRing(block.Body)
	if err != nil {
		return nil, false
	}
	for _, ent := range entities {
		if ent.PrimaryKey != nil && ent.PrimaryKey.KeyId == keyID {
			return ent, true
		}
		for _, sub := range ent.Subkeys {
			if sub.PublicKey != nil && sub.PublicKey.KeyId == keyID {
				return ent, true
			}
		}
	}
	return nil, false
}

// selfValidate performs a structural, non-PKI check: verifying an
// entity's own primary identity self-signature with its own public key.
// It does not prove authenticity; it only confirms the certificate is
// well-formed.
func selfValidate(ent *openpgp.Entity) bool {
	ident := ent.PrimaryIdentity()
	if ident == nil || ident.SelfSignature == nil {
		return false
	}
	err := ident.SelfSignature.VerifyUserIdSignature(ident.Name, ent.PrimaryKey, ent.PrimaryKey)
	return err == nil
}

// checkSignature runs step 4 of the validator.
func checkSignature(insp *BundleInspector, requireSignature bool) []Violation {
	entities, err := harvestCertificates(insp)
	if err != nil {
		return []Violation{newViolation(KindSignatureVerificationErr, SeverityMedium,
			"signature verification error: "+err.Error(), nil)}
	}

	if len(entities) == 0 {
		if requireSignature {
			return []Violation{newViolation(KindMissingSignature, SeverityHigh,
				"bundle carries no certificates", nil)}
		}
		return nil
	}

	for _, ent := range entities {
		if !selfValidate(ent) {
			return []Violation{newViolation(KindInvalidSignature, SeverityHigh,
				"certificate failed self-validation", nil)}
		}
	}
	return nil
}
