package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cil2cpp/aotc/internal/config"
	"github.com/cil2cpp/aotc/internal/logging"
	"github.com/cil2cpp/aotc/internal/pipeline"
)

func newStubsCmd() *cobra.Command {
	var (
		configPath   string
		primaryPath  string
		manifestPath string
		executable   bool
		entryType    string
		entryMethod  string
		moduleName   string
		showCascades bool
	)

	cmd := &cobra.Command{
		Use:   "stubs",
		Short: "Run the pipeline and report the stub analysis without writing C++ output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := logging.New(resolveLogger())
			defer logger.Sync() //nolint:errcheck

			result, err := pipeline.Run(logger, pipeline.Options{
				Config:       cfg,
				PrimaryPath:  primaryPath,
				ManifestPath: manifestPath,
				Executable:   executable,
				EntryType:    entryType,
				EntryMethod:  entryMethod,
				ModuleName:   moduleName,
			})
			if err != nil {
				return err
			}

			report := result.Stubs
			fmt.Printf("%d stubs across %d kinds\n", report.Total, len(report.Groups))
			for _, g := range report.Groups {
				fmt.Printf("  %-24s %d\n", g.Kind, len(g.Records))
			}
			if showCascades {
				fmt.Printf("\n%d cascade-affected methods\n", len(report.Cascades))
			}
			fmt.Println("\nunlock ranking (fix this stub first for the biggest downstream effect):")
			for i, u := range report.Ranking {
				if i >= 10 {
					fmt.Printf("  ... %d more\n", len(report.Ranking)-10)
					break
				}
				fmt.Printf("  %-24s %s.%s  unlocks %d\n", u.Stub.Kind, u.Stub.Method.Method.DeclaringType.FullName, u.Stub.Method.Method.Name, u.Unlocks)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "cil2cpp.yaml", "project configuration file")
	cmd.Flags().StringVar(&primaryPath, "primary", "", "path to the primary assembly (required)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the dependency manifest")
	cmd.Flags().BoolVar(&executable, "executable", false, "root reachability at a single entry method instead of every public member")
	cmd.Flags().StringVar(&entryType, "entry-type", "", "fully qualified entry type (executable mode only)")
	cmd.Flags().StringVar(&entryMethod, "entry-method", "Main", "entry method name (executable mode only)")
	cmd.Flags().StringVar(&moduleName, "module", "Module", "generated file base name")
	cmd.Flags().BoolVar(&showCascades, "cascades", false, "also print the cascade-affected method count")
	_ = cmd.MarkFlagRequired("primary")

	return cmd
}
