package layout

import (
	"context"

	"github.com/tock-tools/tockloader-go/app"
	"github.com/tock-tools/tockloader-go/board"
)

// State names a step in the install state machine.
type State int

const (
	StateIdle State = iota
	StateOpenLink
	StateEnterBootloader
	StateReadAttributes
	StateExtractApps
	StateMergeApps
	StatePlacement
	StateWrites
	StateClearTail
	StateExitBootloader
	StateDone
	StateAbort
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpenLink:
		return "open_link"
	case StateEnterBootloader:
		return "enter_bootloader"
	case StateReadAttributes:
		return "read_attributes"
	case StateExtractApps:
		return "extract_apps"
	case StateMergeApps:
		return "merge_apps"
	case StatePlacement:
		return "placement"
	case StateWrites:
		return "writes"
	case StateClearTail:
		return "clear_tail"
	case StateExitBootloader:
		return "exit_bootloader"
	case StateDone:
		return "done"
	case StateAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Logger is kept at the point of use, exactly as transport.Logger is,
// so this package does not depend on transport or any concrete logging
// framework.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// InstallConfig holds Install's configuration.
type InstallConfig struct {
	Policy        MergePolicy
	PlaceOptions  []PlaceOption
	WriteOptions  []WriteOption
	ReadBinaries  bool
	MaxScan       int
	Logger        Logger
}

// InstallOption is a functional option for Install.
type InstallOption func(*InstallConfig)

// WithMergePolicy sets the merge policy. Default is ReplaceYes with
// Erase and Force both false.
func WithMergePolicy(p MergePolicy) InstallOption {
	return func(c *InstallConfig) { c.Policy = p }
}

// WithPlaceOptions appends placement options (alignment policy, preserve order).
func WithPlaceOptions(opts ...PlaceOption) InstallOption {
	return func(c *InstallConfig) { c.PlaceOptions = append(c.PlaceOptions, opts...) }
}

// WithWriteOptions appends write-stage options (bundle_apps, diff-skip snapshot).
func WithWriteOptions(opts ...WriteOption) InstallOption {
	return func(c *InstallConfig) { c.WriteOptions = append(c.WriteOptions, opts...) }
}

// WithReadBinaries forces every installed app's binary body to be read
// during extraction, needed whenever an installed app might move.
func WithReadBinaries() InstallOption {
	return func(c *InstallConfig) { c.ReadBinaries = true }
}

// WithLogger sets the orchestration logger. A nil Logger is silent.
func WithLogger(l Logger) InstallOption {
	return func(c *InstallConfig) { c.Logger = l }
}

func defaultInstallConfig() InstallConfig {
	return InstallConfig{ReadBinaries: true}
}

// Install runs the full extract -> merge -> place -> write state
// machine against iface, installing every app in tabApps. It returns
// the state reached (StateDone on success, StateAbort otherwise) and
// any error. ExitBootloaderMode is invoked on a best-effort basis
// regardless of where the run aborts.
func Install(ctx context.Context, iface board.Interface, tabApps []*app.TabApp, opts ...InstallOption) (State, error) {
	cfg := defaultInstallConfig()
	for _, o := range opts {
		o(&cfg)
	}

	state := StateOpenLink
	if err := iface.Open(ctx); err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "opened transport")

	state = StateEnterBootloader
	if err := iface.EnterBootloaderMode(ctx); err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "entered bootloader mode")

	state = StateReadAttributes
	startAddr, pageSize, err := readRegionAttributes(ctx, iface)
	if err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "read board attributes", "start", startAddr, "page_size", pageSize)

	state = StateExtractApps
	installed, err := ExtractInstalledApps(ctx, iface, cfg.ReadBinaries, cfg.MaxScan)
	if err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "extracted installed apps", "count", len(installed))

	state = StateMergeApps
	merged := Merge(installed, tabApps, cfg.Policy)
	cfg.log(state, "merged apps", "count", len(merged))

	state = StatePlacement
	ops, err := Place(merged, startAddr, cfg.PlaceOptions...)
	if err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "computed placement", "ops", len(ops))

	state = StateWrites
	if err := Execute(ctx, iface, ops, pageSize, cfg.WriteOptions...); err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "wrote placement")

	state = StateClearTail
	if err := clearTail(ctx, iface, ops, installed, pageSize); err != nil {
		return cfg.abort(ctx, iface, err)
	}
	cfg.log(state, "cleared tail")

	state = StateExitBootloader
	if err := iface.ExitBootloaderMode(ctx); err != nil {
		return StateAbort, err
	}
	cfg.log(state, "exited bootloader mode")

	return StateDone, nil
}

func (c InstallConfig) abort(ctx context.Context, iface board.Interface, err error) (State, error) {
	if c.Logger != nil {
		c.Logger.Error("aborting install", "error", err)
	}
	_ = iface.ExitBootloaderMode(ctx) // best-effort, per the cancellation contract
	return StateAbort, err
}

func (c InstallConfig) log(state State, msg string, kv ...interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Debug(msg, append([]interface{}{"state", state.String()}, kv...)...)
}

func readRegionAttributes(ctx context.Context, iface board.Interface) (startAddr, pageSize uint32, err error) {
	startAddr, err = iface.GetAppsStartAddress(ctx)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err = iface.GetPageSize(ctx)
	if err != nil {
		return 0, 0, err
	}
	return startAddr, pageSize, nil
}

// clearTail invalidates the header immediately following the last
// placement op, so a linked-list walk on the next run terminates where
// this run's apps end rather than continuing into whatever stale app
// used to follow them.
func clearTail(ctx context.Context, iface board.Interface, ops []Op, previouslyInstalled []app.App, pageSize uint32) error {
	if len(ops) == 0 {
		return nil
	}

	tailAddr := ops[0].Addr
	for _, op := range ops {
		if end := op.Addr + uint32(len(op.Emit)); end > tailAddr {
			tailAddr = end
		}
	}

	oldEnd := tailAddr
	for _, a := range previouslyInstalled {
		if ia, ok := a.(*app.InstalledApp); ok {
			if end := ia.Addr + ia.TotalSize(); end > oldEnd {
				oldEnd = end
			}
		}
	}
	if oldEnd <= tailAddr {
		return nil
	}

	return iface.ClearBytes(ctx, tailAddr, oldEnd-tailAddr)
}
