package envsetup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	StepProvision = "provision"
	StepCreateEnv = "create-env"
	StepActivate  = "activate"
	StepTools     = "upgrade-tools"
	StepCompile   = "compile-lock"
	StepNormalize = "normalize-lock"
	StepInstall   = "install"
	StepVerify    = "verify"
	StepEntry     = "entry"
)

// Step is one blocking unit of the bootstrap. Steps with Do run in process;
// the rest execute Args. Args is also what a dry run prints.
type Step struct {
	Name string
	Args []string
	Skip func(rc *RunContext) (bool, string)
	Do   func(ctx context.Context, rc *RunContext) error
}

func (s Step) Describe() string {
	if len(s.Args) > 0 {
		return strings.Join(s.Args, " ")
	}
	return "(in process)"
}

type PlanOptions struct {
	SkipEntry bool
}

// BuildPlan returns the full bootstrap in execution order.
func BuildPlan(cfg Config, opts PlanOptions) []Step {
	steps := []Step{
		ProvisionStep(cfg),
		CreateEnvStep(cfg),
		ActivateStep(cfg),
		ToolsStep(cfg),
		CompileStep(cfg),
		NormalizeStep(cfg),
		InstallStep(cfg),
		VerifyStep(cfg),
	}
	if !opts.SkipEntry {
		steps = append(steps, EntryStep(cfg))
	}
	return steps
}

// LockPlan compiles and normalizes the lock inside an existing environment.
func LockPlan(cfg Config) []Step {
	return []Step{ActivateStep(cfg), ToolsStep(cfg), CompileStep(cfg), NormalizeStep(cfg)}
}

// VerifyPlan checks an existing environment against the lock.
func VerifyPlan(cfg Config) []Step {
	return []Step{ActivateStep(cfg), VerifyStep(cfg)}
}

// ProvisionStep always reinstalls the interpreter.
func ProvisionStep(cfg Config) Step {
	return Step{
		Name: StepProvision,
		Args: []string{cfg.Pyenv, "install", "-f", cfg.PythonVersion},
	}
}

// CreateEnvStep is skipped when the environment already has an interpreter,
// which makes re-running the bootstrap safe.
func CreateEnvStep(cfg Config) Step {
	return Step{
		Name: StepCreateEnv,
		Args: []string{cfg.Pyenv, "virtualenv", cfg.PythonVersion, cfg.EnvName},
		Skip: func(rc *RunContext) (bool, string) {
			if EnvReady(rc.Config) {
				return true, "environment already exists at " + rc.Config.EnvPath()
			}
			return false, ""
		},
	}
}

func ActivateStep(cfg Config) Step {
	return Step{
		Name: StepActivate,
		Do: func(_ context.Context, rc *RunContext) error {
			if !EnvReady(rc.Config) {
				return fmt.Errorf("environment %s has no interpreter", rc.Config.EnvPath())
			}
			Activate(rc.Env, rc.Config)
			rc.Logger.Info("environment activated", zap.String("virtual_env", rc.Config.EnvPath()))
			return nil
		},
	}
}

func ToolsStep(cfg Config) Step {
	tools := []string{"pip", "setuptools", "wheel", "pip-tools"}
	if v := strings.TrimSpace(cfg.PipToolsVersion); v != "" {
		tools[3] = "pip-tools==" + v
	}
	return Step{
		Name: StepTools,
		Args: append([]string{"python", "-m", "pip", "install", "--upgrade"}, tools...),
	}
}

func CompileStep(cfg Config) Step {
	return Step{
		Name: StepCompile,
		Args: []string{
			"pip-compile", "--no-header", "--no-annotate", "--strip-extras",
			cfg.Manifest, "-o", cfg.LockFile,
		},
	}
}

// NormalizeStep rewrites the compiled lock into its canonical form and
// checks it covers the abstract manifest.
func NormalizeStep(cfg Config) Step {
	return Step{
		Name: StepNormalize,
		Do: func(_ context.Context, rc *RunContext) error {
			files, err := rc.files()
			if err != nil {
				return err
			}
			raw, err := files.ReadFile(rc.Config.LockFile)
			if err != nil {
				return fmt.Errorf("read lock: %w", err)
			}
			lock, err := ParseLock(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", rc.Config.LockFile, err)
			}
			manifestRaw, err := files.ReadFile(rc.Config.Manifest)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			manifest, err := ParseManifest(manifestRaw)
			if err != nil {
				return fmt.Errorf("%s: %w", rc.Config.Manifest, err)
			}
			if err := CheckClosure(manifest, lock); err != nil {
				return err
			}
			formatted := lock.Format()
			if bytes.Equal(formatted, raw) {
				return nil
			}
			if err := files.WriteFile(rc.Config.LockFile, formatted, 0o644); err != nil {
				return fmt.Errorf("write lock: %w", err)
			}
			rc.Logger.Info("lock normalized",
				zap.String("path", rc.Config.path(rc.Config.LockFile)),
				zap.Int("entries", len(lock.Entries)))
			return nil
		},
	}
}

func InstallStep(cfg Config) Step {
	return Step{
		Name: StepInstall,
		Args: []string{"python", "-m", "pip", "install", "-r", cfg.LockFile},
	}
}

// VerifyStep compares `pip freeze` with the lock.
func VerifyStep(cfg Config) Step {
	args := []string{"python", "-m", "pip", "freeze", "--all"}
	return Step{
		Name: StepVerify,
		Args: args,
		Do: func(ctx context.Context, rc *RunContext) error {
			files, err := rc.files()
			if err != nil {
				return err
			}
			raw, err := files.ReadFile(rc.Config.LockFile)
			if err != nil {
				return fmt.Errorf("read lock: %w", err)
			}
			lock, err := ParseLock(raw)
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := rc.run(ctx, args, &out); err != nil {
				return err
			}
			installed, err := ParseFreeze(out.Bytes())
			if err != nil {
				return err
			}
			res := CompareInstalled(lock, installed, rc.Config.VerifyIgnore)
			if !res.OK() {
				return res
			}
			rc.Logger.Info("installed set matches lock", zap.Int("packages", len(lock.Entries)))
			return nil
		},
	}
}

// EntryStep launches the application with no arguments.
func EntryStep(cfg Config) Step {
	return Step{
		Name: StepEntry,
		Args: append([]string(nil), cfg.Entry...),
	}
}
