// Package pipeline wires every compiler stage into the single ordered
// build internal/assembly through internal/stubs implement: open the
// assembly closure, analyze reachability, build the typed IR, generate
// C++ artifacts, then classify and rank whatever stubs remain. Grounded
// on tinyrange-rtg/std/compiler/main.go's top-level flow (resolve module,
// validate, compile to IR, eliminate dead code, generate output, write the
// size report), generalized from one hand-rolled main function's inline
// stage calls to a reusable Run entry point cmd/cil2cpp drives.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cil2cpp/aotc/internal/assembly"
	"github.com/cil2cpp/aotc/internal/codegen"
	"github.com/cil2cpp/aotc/internal/config"
	"github.com/cil2cpp/aotc/internal/icall"
	"github.com/cil2cpp/aotc/internal/ir"
	"github.com/cil2cpp/aotc/internal/irtext"
	"github.com/cil2cpp/aotc/internal/logging"
	"github.com/cil2cpp/aotc/internal/reach"
	"github.com/cil2cpp/aotc/internal/runtimetypes"
	"github.com/cil2cpp/aotc/internal/stubs"
)

// Options configures one end-to-end build.
type Options struct {
	Config config.Config

	PrimaryPath  string
	ManifestPath string

	// Executable selects ModeExecutable rooted at EntryType.EntryMethod;
	// false builds ModeLibrary, rooted at every public API member instead.
	Executable bool
	EntryType  string
	EntryMethod string

	ModuleName       string
	PInvokeLibraries []string

	// EmitIRText requests the finished IR module rendered as human-
	// readable text (internal/irtext), independent of the C++ artifacts,
	// for debugging and for golden-file assertions.
	EmitIRText bool
}

// Result is everything one Run call produces: the generated artifacts,
// the stub analysis, and whatever budget-ratchet violations the run
// surfaced (non-fatal — the caller decides whether a ratchet regression
// fails the command).
type Result struct {
	Codegen          *codegen.Result
	Stubs            *stubs.Report
	RatchetViolations []stubs.RatchetViolation

	// IRText holds the --emit-ir-text dump when Options.EmitIRText was
	// set; empty otherwise.
	IRText string
}

// Run executes the full pipeline: AssemblySet -> ReachabilityAnalyzer ->
// IRBuilder -> code generator -> StubAnalyzer -> budget ratchet. Every
// stage logs through its own child logger (internal/logging.Stage) so a
// verbose run traces exactly which stage is active without the caller
// having to thread print statements through each package.
func Run(logger *zap.Logger, opts Options) (*Result, error) {
	openLog := logging.Stage(logger, "open")
	openLog.Info("opening assembly set", zap.String("primary", opts.PrimaryPath))
	set, err := assembly.Open(opts.PrimaryPath, opts.ManifestPath, opts.Config.StdlibPath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening assembly set: %w", err)
	}
	defer set.Close()

	runtime, err := runtimetypes.Load()
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading runtime-provided-types allowlist: %w", err)
	}
	icalls, err := icall.Load()
	if err != nil {
		return nil, fmt.Errorf("pipeline: loading internal-call registry: %w", err)
	}

	reachLog := logging.Stage(logger, "reach")
	mode := reach.ModeLibrary
	var entry *assembly.Method
	if opts.Executable {
		mode = reach.ModeExecutable
		entryType, err := set.LookupType(opts.EntryType)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolving entry type: %w", err)
		}
		entry, err = set.LookupMethod(entryType, opts.EntryMethod, 0)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolving entry method: %w", err)
		}
	}
	reachLog.Info("analyzing reachability", zap.String("mode", modeName(mode)))
	reachSet, err := reach.Analyze(set, mode, entry, reach.AlwaysKeep{RuntimeProvidedTypes: runtime.Names()})
	if err != nil {
		return nil, fmt.Errorf("pipeline: analyzing reachability: %w", err)
	}
	reachLog.Info("reachable closure computed",
		zap.Int("types", len(reachSet.Types)),
		zap.Int("methods", len(reachSet.Methods)),
		zap.Int("fields", len(reachSet.Fields)))

	irLog := logging.Stage(logger, "ir")
	irLog.Info("building IR")
	mod, err := ir.Build(set, reachSet)
	if err != nil {
		return nil, fmt.Errorf("pipeline: building IR: %w", err)
	}
	irLog.Info("IR built", zap.Int("types", len(mod.Types)), zap.Int("methods", len(mod.Methods)))

	codegenLog := logging.Stage(logger, "codegen")
	var entryIdent string
	if opts.Executable {
		entryIR := findMethodIR(mod, entry)
		if entryIR == nil {
			return nil, fmt.Errorf("pipeline: entry method did not survive reachability analysis")
		}
		name, err := mod.Names.MethodName(mustTypeName(mod, entry.DeclaringType), entry.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("pipeline: naming entry method: %w", err)
		}
		entryIdent = name
	}
	threshold := opts.Config.PartitionInstructionThreshold
	if threshold <= 0 {
		threshold = codegen.DefaultPartitionThreshold
	}
	codegenLog.Info("generating artifacts", zap.Bool("executable", opts.Executable))
	genResult, err := codegen.Generate(set, mod, icalls, runtime, codegen.Options{
		ModuleName:         opts.ModuleName,
		Executable:         opts.Executable,
		EntryMethod:        entryIdent,
		PartitionThreshold: threshold,
		PInvokeLibraries:   opts.PInvokeLibraries,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: generating code: %w", err)
	}
	codegenLog.Info("artifacts generated",
		zap.Int("partitions", len(genResult.MethodPartitions)),
		zap.Int("stubs", len(genResult.Stubs)))

	stubsLog := logging.Stage(logger, "stubs")
	report, err := stubs.Analyze(set, mod, genResult)
	if err != nil {
		return nil, fmt.Errorf("pipeline: analyzing stubs: %w", err)
	}
	stubsLog.Info("stub analysis complete", zap.Int("total", report.Total), zap.Int("groups", len(report.Groups)))

	result := &Result{Codegen: genResult, Stubs: report}
	if opts.EmitIRText {
		result.IRText = irtext.Render(mod)
	}
	if opts.Config.BudgetPath != "" {
		cur := stubs.SnapshotOf(report)
		prev, ok, err := stubs.LoadSnapshot(opts.Config.BudgetPath)
		if err != nil {
			return nil, fmt.Errorf("pipeline: loading budget snapshot: %w", err)
		}
		if ok {
			result.RatchetViolations = stubs.CheckRatchet(prev, cur)
			for _, v := range result.RatchetViolations {
				stubsLog.Warn("budget ratchet violation", zap.String("kind", v.Kind), zap.Int("previous", v.Previous), zap.Int("current", v.Current))
			}
		}
		if len(result.RatchetViolations) == 0 {
			if err := stubs.SaveSnapshot(opts.Config.BudgetPath, cur); err != nil {
				return nil, fmt.Errorf("pipeline: saving budget snapshot: %w", err)
			}
		}
	}

	return result, nil
}

func modeName(m reach.Mode) string {
	if m == reach.ModeExecutable {
		return "executable"
	}
	return "library"
}

func findMethodIR(mod *ir.Module, m *assembly.Method) *ir.MethodIR {
	for _, mi := range mod.Methods {
		if mi.Method == m {
			return mi
		}
	}
	return nil
}

func mustTypeName(mod *ir.Module, t *assembly.Type) string {
	name, err := mod.Names.TypeName(t.FullName)
	if err != nil {
		return t.FullName
	}
	return name
}
