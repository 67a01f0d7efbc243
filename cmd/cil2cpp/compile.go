package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cil2cpp/aotc/internal/config"
	"github.com/cil2cpp/aotc/internal/logging"
	"github.com/cil2cpp/aotc/internal/pipeline"
)

func newCompileCmd() *cobra.Command {
	var (
		configPath   string
		primaryPath  string
		manifestPath string
		executable   bool
		entryType    string
		entryMethod  string
		moduleName   string
		outDir       string
		pinvokeLibs  []string
		emitIRText   bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Translate an assembly set into C++ source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if outDir != "" {
				cfg.OutDir = outDir
			}

			logger := logging.New(resolveLogger())
			defer logger.Sync() //nolint:errcheck

			result, err := pipeline.Run(logger, pipeline.Options{
				Config:           cfg,
				PrimaryPath:      primaryPath,
				ManifestPath:     manifestPath,
				Executable:       executable,
				EntryType:        entryType,
				EntryMethod:      entryMethod,
				ModuleName:       moduleName,
				PInvokeLibraries: pinvokeLibs,
				EmitIRText:       emitIRText,
			})
			if err != nil {
				return err
			}

			if len(result.RatchetViolations) > 0 {
				logger.Warn("stub budget ratchet regressed, artifacts still written", zap.Int("violations", len(result.RatchetViolations)))
			}

			if err := writeArtifacts(cfg.OutDir, result); err != nil {
				return fmt.Errorf("writing artifacts: %w", err)
			}
			if emitIRText {
				irPath := filepath.Join(cfg.OutDir, moduleName+".ir.txt")
				if err := os.WriteFile(irPath, []byte(result.IRText), 0o644); err != nil {
					return fmt.Errorf("writing IR text dump: %w", err)
				}
			}

			fmt.Printf("generated %d partitions, %d stubs (%d groups)\n",
				len(result.Codegen.MethodPartitions), result.Stubs.Total, len(result.Stubs.Groups))
			if len(result.RatchetViolations) > 0 {
				for _, v := range result.RatchetViolations {
					fmt.Printf("budget regression: %s\n", v.String())
				}
				return fmt.Errorf("stub budget ratchet regressed")
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
	cmd.Flags().StringVar(&outDir, "out", "", "output directory, overriding the config file's outDir")
	cmd.Flags().StringSliceVar(&pinvokeLibs, "pinvoke-lib", nil, "user P/Invoke library to link")
	cmd.Flags().BoolVar(&emitIRText, "emit-ir-text", false, "also write <module>.ir.txt: a human-readable dump of the finished IR module")
	_ = cmd.MarkFlagRequired("primary")

	return cmd
}

func writeArtifacts(outDir string, result *pipeline.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	artifacts := []struct {
		Name    string
		Content string
	}{
		{result.Codegen.Header.Name, result.Codegen.Header.Content},
		{result.Codegen.Data.Name, result.Codegen.Data.Content},
		{result.Codegen.StubFile.Name, result.Codegen.StubFile.Content},
		{result.Codegen.Manifest.Name, result.Codegen.Manifest.Content},
	}
	for _, p := range result.Codegen.MethodPartitions {
		artifacts = append(artifacts, struct {
			Name    string
			Content string
		}{p.Name, p.Content})
	}
	if result.Codegen.Main != nil {
		artifacts = append(artifacts, struct {
			Name    string
			Content string
		}{result.Codegen.Main.Name, result.Codegen.Main.Content})
	}
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(outDir, a.Name), []byte(a.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.Name, err)
		}
	}
	return nil
}
