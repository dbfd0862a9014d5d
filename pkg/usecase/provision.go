package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/m-mizutani/fontprov/pkg/domain/interfaces"
	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

type provisioner struct {
	fetcher interfaces.Fetcher
	indexer interfaces.FontIndexer
	cfg     config
}

// NewProvisioner creates a new instance of ProvisionUseCase
func NewProvisioner(fetcher interfaces.Fetcher, indexer interfaces.FontIndexer, opts ...Option) interfaces.ProvisionUseCase {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &provisioner{
		fetcher: fetcher,
		indexer: indexer,
		cfg:     cfg,
	}
}

// assetSlot tracks one catalog asset through a run. Each slot is written only
// by the worker processing its fetch unit, then read after the pool drains.
type assetSlot struct {
	asset     model.FontAsset
	unit      string
	state     model.UnitState
	data      []byte
	err       error
	file      string
	size      int
	unchanged bool
}

func (s *assetSlot) advance(next model.UnitState) bool {
	if !s.state.CanTransitionTo(next) {
		return false
	}
	s.state = next
	return true
}

func (s *assetSlot) fail(err error) {
	if s.advance(model.UnitFailed) {
		s.err = err
		s.data = nil
	}
}

func (s *assetSlot) skip(reason error) {
	if s.advance(model.UnitSkipped) {
		s.err = reason
		s.data = nil
	}
}

func (s *assetSlot) outcome() model.AssetOutcome {
	out := model.AssetOutcome{
		Family:    s.asset.Family,
		Style:     s.asset.Style,
		Unit:      s.unit,
		State:     s.state,
		File:      s.file,
		Bytes:     s.size,
		Unchanged: s.unchanged,
	}
	if s.err != nil {
		out.Reason = s.err.Error()
		if s.state == model.UnitFailed {
			out.Kind = model.KindOf(s.err)
		}
	}
	return out
}

// Provision fetches, verifies and installs every asset of the catalog, then
// rebuilds the font index exactly once
func (p *provisioner) Provision(ctx context.Context, catalog *model.Catalog, strategy model.Strategy) (*model.ProvisionReport, error) {
	if catalog == nil {
		return nil, goerr.Wrap(model.ErrInvalidCatalog, "catalog is nil")
	}
	catalog = catalog.Clone()

	units, err := Plan(catalog, strategy)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := ctxlog.From(ctx).With("run_id", runID)
	ctx = ctxlog.With(ctx, logger)

	report := &model.ProvisionReport{
		RunID:      runID,
		Catalog:    catalog.Name,
		Strategy:   strategy,
		Policy:     p.cfg.policy,
		InstallDir: p.cfg.installDir,
		State:      model.RunNotStarted,
		StartedAt:  time.Now(),
	}

	slots := make([]*assetSlot, 0, len(catalog.Assets))
	unitSlots := make([][]*assetSlot, len(units))
	for i, unit := range units {
		for _, asset := range unit.Assets {
			slot := &assetSlot{asset: asset, unit: unit.Locator, state: model.UnitPending}
			unitSlots[i] = append(unitSlots[i], slot)
		}
	}
	// Report slots follow catalog order, not unit order
	byKey := make(map[model.AssetKey]*assetSlot, len(catalog.Assets))
	for _, group := range unitSlots {
		for _, slot := range group {
			byKey[slot.asset.Key()] = slot
		}
	}
	for _, asset := range catalog.Assets {
		slots = append(slots, byKey[asset.Key()])
	}

	setRunState(report, model.RunInProgress)
	logger.Info("Starting font provisioning",
		"catalog", catalog.Name,
		"strategy", strategy,
		"policy", p.cfg.policy,
		"assets", len(catalog.Assets),
		"fetch_units", len(units),
		"concurrency", p.workers(),
		"install_dir", p.cfg.installDir,
	)

	// Phase 1: fetch and verify
	fetchErr := p.fetchAll(ctx, units, unitSlots)
	if ctx.Err() != nil {
		return p.abort(ctx, report, slots, goerr.Wrap(ctx.Err(), "provisioning cancelled"))
	}
	if fetchErr != nil {
		return p.abort(ctx, report, slots, goerr.Wrap(
			fmt.Errorf("%w: %w", model.ErrRunAborted, fetchErr),
			"fetch unit failed under fail-fast policy"))
	}

	// Phase 2: install, a single critical section over the directory
	if err := p.installAll(ctx, report.RunID, slots); err != nil {
		return p.abort(ctx, report, slots, goerr.Wrap(
			fmt.Errorf("%w: %w", model.ErrRunAborted, err),
			"install failed under fail-fast policy"))
	}

	// Phase 3: exactly one index rebuild, after every install
	if err := p.indexer.Rebuild(ctx, p.cfg.installDir); err != nil {
		report.IndexError = err.Error()
		p.finish(report, slots, model.RunAborted)
		logger.Error("Font index rebuild failed", "error", err, "install_dir", p.cfg.installDir)
		return report, goerr.Wrap(fmt.Errorf("%w: %w", model.ErrIndexRebuildFailure, err),
			"failed to rebuild font index",
			goerr.V("install_dir", p.cfg.installDir))
	}
	report.IndexRebuilt = true

	p.finish(report, slots, model.RunCompleted)
	logger.Info("Font provisioning completed",
		"requested", report.Requested,
		"installed", report.Installed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"outcome", report.Outcome(),
		"duration_ms", report.Duration().Milliseconds(),
	)

	return report, nil
}

// fetchAll runs the fetch units on a bounded worker pool. Under fail-fast the
// units run one at a time in plan order, and the first unit failure is
// returned before any later unit is attempted; those keep their pending slots.
func (p *provisioner) fetchAll(ctx context.Context, units []model.FetchUnit, unitSlots [][]*assetSlot) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers())

	for i, unit := range units {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			err := p.processUnit(egCtx, unit, unitSlots[i])
			if err != nil && p.cfg.policy == model.PolicyFailFast && !model.IsCancellation(err) {
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

// workers is the size of the fetch pool for this run
func (p *provisioner) workers() int {
	if p.cfg.policy == model.PolicyFailFast {
		return 1
	}
	return p.cfg.concurrency
}

// processUnit fetches one unit and verifies what it yields. It returns the
// first failure of the unit, if any.
func (p *provisioner) processUnit(ctx context.Context, unit model.FetchUnit, slots []*assetSlot) error {
	logger := ctxlog.From(ctx)

	for _, slot := range slots {
		slot.advance(model.UnitFetching)
	}

	data, err := p.fetch(ctx, unit.Locator)
	if err != nil {
		if model.IsCancellation(err) {
			for _, slot := range slots {
				slot.skip(goerr.Wrap(err, "fetch abandoned"))
			}
			return err
		}
		logger.Warn("Failed to fetch unit",
			"locator", unit.Locator,
			"kind", unit.Kind,
			"error", err,
		)
		for _, slot := range slots {
			slot.fail(err)
		}
		return err
	}

	for _, slot := range slots {
		slot.advance(model.UnitVerifying)
	}

	switch unit.Kind {
	case model.UnitKindFile:
		return p.verifySlot(ctx, slots[0], data)

	case model.UnitKindArchive:
		if err := verifyArchive(data); err != nil {
			for _, slot := range slots {
				slot.fail(err)
			}
			return err
		}
		members, err := extractMembers(ctx, data, unit.Assets)
		if err != nil {
			for _, slot := range slots {
				slot.fail(err)
			}
			return err
		}

		var firstErr error
		for i, slot := range slots {
			err := members[i].err
			if err == nil {
				err = p.verifySlot(ctx, slot, members[i].data)
			} else {
				slot.fail(err)
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	return goerr.New("unknown fetch unit kind", goerr.V("kind", unit.Kind))
}

func (p *provisioner) verifySlot(ctx context.Context, slot *assetSlot, data []byte) error {
	logger := ctxlog.From(ctx)

	info, err := verifyFont(data, p.cfg.deepVerify)
	if err != nil {
		logger.Warn("Font payload rejected",
			"asset", slot.asset.Key().String(),
			"kind", model.KindOf(err),
			"error", err,
		)
		slot.fail(err)
		return err
	}

	if !info.matchesDeclared(slot.asset) {
		logger.Warn("Embedded font family differs from catalog",
			"asset", slot.asset.Key().String(),
			"embedded_family", info.Family,
			"embedded_style", info.Style,
		)
	}

	slot.data = data
	slot.size = len(data)
	return nil
}

// installAll installs every verified slot in catalog order. Slots become
// Installed only once the whole phase is committed. Under fail-fast the first
// failure rolls the phase back and is returned.
func (p *provisioner) installAll(ctx context.Context, runID string, slots []*assetSlot) error {
	logger := ctxlog.From(ctx)
	failFast := p.cfg.policy == model.PolicyFailFast

	inst, err := newInstaller(ctx, p.cfg.installDir, runID)
	if err != nil {
		logger.Error("Cannot prepare installation directory", "error", err)
		for _, slot := range slots {
			if slot.state == model.UnitVerifying {
				slot.fail(err)
			}
		}
		if failFast {
			return err
		}
		return nil
	}

	type placed struct {
		slot      *assetSlot
		name      string
		unchanged bool
	}
	var done []placed
	claimed := make(map[string]model.AssetKey)

	for _, slot := range slots {
		if slot.state != model.UnitVerifying {
			continue
		}

		name := slot.asset.FileName()
		if owner, ok := claimed[name]; ok {
			err := goerr.Wrap(model.ErrNameCollision, "file name already claimed by an earlier asset",
				goerr.V("file", name),
				goerr.V("claimed_by", owner.String()))
			slot.fail(err)
			if failFast {
				inst.rollback(ctx)
				return err
			}
			continue
		}
		claimed[name] = slot.asset.Key()

		unchanged, err := inst.install(name, slot.data)
		if err != nil {
			logger.Warn("Failed to install font",
				"asset", slot.asset.Key().String(),
				"file", name,
				"error", err,
			)
			slot.fail(err)
			if failFast {
				inst.rollback(ctx)
				return err
			}
			continue
		}
		done = append(done, placed{slot: slot, name: name, unchanged: unchanged})
	}

	if err := inst.commit(); err != nil {
		if failFast {
			inst.rollback(ctx)
			for _, d := range done {
				d.slot.fail(err)
			}
			return err
		}
		logger.Warn("Installed fonts but failed to update ownership manifest", "error", err)
		inst.cleanup()
	}

	for _, d := range done {
		d.slot.file = d.name
		d.slot.unchanged = d.unchanged
		d.slot.data = nil
		d.slot.advance(model.UnitInstalled)
		logger.Debug("Installed font",
			"asset", d.slot.asset.Key().String(),
			"file", d.name,
			"unchanged", d.unchanged,
		)
	}

	return nil
}

// abort ends the run without index rebuild. Every slot that did not reach a
// terminal state is reported as skipped.
func (p *provisioner) abort(ctx context.Context, report *model.ProvisionReport, slots []*assetSlot, err error) (*model.ProvisionReport, error) {
	logger := ctxlog.From(ctx)

	reason := goerr.Wrap(model.ErrRunAborted, "not installed")
	for _, slot := range slots {
		if !slot.state.Terminal() {
			slot.skip(reason)
		}
	}
	p.finish(report, slots, model.RunAborted)

	logger.Error("Font provisioning aborted",
		"error", err,
		"installed", report.Installed,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, err
}

func (p *provisioner) finish(report *model.ProvisionReport, slots []*assetSlot, state model.RunState) {
	report.Assets = make([]model.AssetOutcome, 0, len(slots))
	for _, slot := range slots {
		report.Assets = append(report.Assets, slot.outcome())
	}
	report.Tally()
	setRunState(report, state)
	report.FinishedAt = time.Now()
}

func setRunState(report *model.ProvisionReport, next model.RunState) {
	if report.State.CanTransitionTo(next) {
		report.State = next
	}
}
