// Command plugincorectl is a thin CLI over the plugin lifecycle core,
// wiring a Policy and a Manager to a handful of Cobra subcommands. CLI
// rendering is not part of the core's trust boundary; this command only
// drives the core's public API and prints its results.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forgeci/plugincore/internal/config"
	"github.com/forgeci/plugincore/internal/log"
	"github.com/forgeci/plugincore/internal/plugin"
)

var (
	pluginDir  string
	policyName string
	configPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plugincorectl",
		Short: "Inspect and drive the plugin lifecycle core",
	}
	root.PersistentFlags().StringVar(&pluginDir, "plugin-dir", "./plugins", "directory holding plugin bundles")
	root.PersistentFlags().StringVar(&policyName, "policy", "default", "policy preset: default, strict, permissive")
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional policy config file (yaml)")

	root.AddCommand(newLoadAllCmd(), newListCmd(), newStatsCmd())
	return root
}

func newManager(logger plugin.Logger) (*plugin.Manager, error) {
	fsys := afero.NewOsFs()
	policy, err := config.LoadPolicy(fsys, configPath, policyName)
	if err != nil {
		return nil, err
	}
	return plugin.NewManager(fsys, pluginDir, policy, plugin.NewFactoryRegistry(), logger, nil)
}

func newLoadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-all",
		Short: "Load every bundle in the plugin directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefault()
			mgr, err := newManager(logger)
			if err != nil {
				return err
			}
			outcomes := mgr.LoadAll(context.Background())
			for _, o := range outcomes {
				if o.Success {
					fmt.Printf("loaded: %s\n", o.Name)
				} else {
					fmt.Printf("failed: %s: %v\n", o.Name, o.Err)
				}
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List currently loaded plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefault()
			mgr, err := newManager(logger)
			if err != nil {
				return err
			}
			for _, p := range mgr.All() {
				fmt.Printf("%s\t%s\t%s\n", p.Metadata.ID, p.Metadata.Version, p.Location)
			}
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregated lifecycle stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewDefault()
			mgr, err := newManager(logger)
			if err != nil {
				return err
			}
			s := mgr.Stats()
			fmt.Printf("live=%d loaded=%d unloaded=%d errored=%d resolved_symbols=%d\n",
				s.Live, s.Loaded, s.Unloaded, s.Errored, s.ResolvedSyms)
			return nil
		},
	}
}
