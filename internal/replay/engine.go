// Package replay brings a base hive image to its most recent consistent
// state by applying one or two transaction logs. Each log walks a small state
// machine (validated, skipped, partially applied, applied) and the combined
// outcome is always reported to the caller alongside the merged image.
package replay

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hivetap/hivetap/internal/format"
	"github.com/hivetap/hivetap/pkg/types"
)

// Options configures an Engine.
type Options struct {
	// Logger receives structured per-log decisions. Nil disables logging.
	Logger *zap.Logger
}

// Engine applies transaction logs to hive images. The zero value is not
// usable; construct with New.
type Engine struct {
	log *zap.Logger
}

// New returns an Engine with the given options.
func New(opts Options) *Engine {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Engine{log: l}
}

// input is one log handed to the engine, either as bytes or as a read
// failure to be reported.
type input struct {
	path string
	data []byte
	err  error
}

// Apply implements types.LogApplier. Logs are applied in argument order;
// the second log only applies when its starting sequence matches the
// sequence reached after the first. base is never mutated.
func (e *Engine) Apply(base []byte, logs ...[]byte) ([]byte, *types.ReplayReport, error) {
	ins := make([]input, len(logs))
	for i, l := range logs {
		ins[i] = input{data: l}
	}
	return e.apply(base, ins)
}

// ApplyFiles reads up to two log files and applies them to base. A missing
// or unreadable log degrades to "use the image as-is" and is reported, never
// an error on its own.
func (e *Engine) ApplyFiles(base []byte, log1Path, log2Path string) ([]byte, *types.ReplayReport, error) {
	ins := make([]input, 0, 2)
	for _, path := range []string{log1Path, log2Path} {
		in := input{path: path}
		if path != "" {
			in.data, in.err = os.ReadFile(path)
		}
		ins = append(ins, in)
	}
	return e.apply(base, ins)
}

func (e *Engine) apply(base []byte, ins []input) ([]byte, *types.ReplayReport, error) {
	head, err := format.ParseHeader(base)
	if err != nil {
		if errors.Is(err, format.ErrSignatureMismatch) {
			return nil, nil, types.ErrNotHive
		}
		return nil, nil, &types.Error{Kind: types.ErrKindInvalidFormat, Msg: "replay: bad base image", Err: err}
	}
	if len(base) > format.MaxHiveSize {
		return nil, nil, &types.Error{
			Kind: types.ErrKindInvalidFormat,
			Msg:  fmt.Sprintf("replay: base image %d bytes exceeds limit", len(base)),
		}
	}

	image := make([]byte, len(base))
	copy(image, base)

	report := &types.ReplayReport{
		FinalPrimary:   head.PrimarySequence,
		FinalSecondary: head.SecondarySequence,
	}
	workingSeq := head.SecondarySequence
	baseSeq := workingSeq

	for i, in := range ins {
		name := fmt.Sprintf("LOG%d", i+1)
		lr := e.replayOne(image, in, workingSeq, name)
		// Growth happens inside replayOne via the returned image.
		image = lr.image
		report.Logs = append(report.Logs, lr.report)
		report.PagesApplied += lr.report.PagesApplied
		if lr.report.State == types.LogApplied {
			workingSeq = lr.report.EndSequence
		}
	}

	// A zero-page log that reaches Applied still advances the sequence, so
	// the header is rewritten whenever pages landed or workingSeq moved.
	if report.PagesApplied > 0 || workingSeq != baseSeq {
		format.PutU32(image, format.REGFPrimarySeqOffset, workingSeq)
		format.PutU32(image, format.REGFSecondarySeqOffset, workingSeq)
		if err := format.UpdateHeaderChecksum(image); err != nil {
			return nil, nil, &types.Error{Kind: types.ErrKindIO, Msg: "replay: rewrite checksum", Err: err}
		}
		report.ChecksumRewritten = true
		report.FinalPrimary = workingSeq
		report.FinalSecondary = workingSeq
		e.log.Info("transaction logs applied",
			zap.Int("pages", report.PagesApplied),
			zap.Uint32("finalSequence", workingSeq))
	}

	return image, report, nil
}

type logResult struct {
	image  []byte
	report types.LogReport
}

// replayOne walks the state machine for a single log against the working
// image at sequence workingSeq.
func (e *Engine) replayOne(image []byte, in input, workingSeq uint32, name string) logResult {
	lr := logResult{image: image}
	lr.report.Path = in.path

	if in.err != nil {
		lr.report.State = types.LogUnopened
		lr.report.Reason = fmt.Sprintf("open failed: %v", in.err)
		e.log.Debug("log unopened", zap.String("log", name), zap.Error(in.err))
		return lr
	}
	if len(in.data) == 0 {
		lr.report.State = types.LogUnopened
		lr.report.Reason = "absent"
		return lr
	}

	head, err := format.ParseLogHeader(in.data)
	if err != nil {
		lr.report.State = types.LogSkipped
		switch {
		case errors.Is(err, format.ErrLegacyLog):
			lr.report.Reason = "legacy dirty-vector format"
		default:
			lr.report.Reason = fmt.Sprintf("unparsable header: %v", err)
		}
		e.log.Warn("log skipped", zap.String("log", name), zap.String("reason", lr.report.Reason))
		return lr
	}
	lr.report.StartSequence = head.StartSequence
	lr.report.EndSequence = head.EndSequence
	lr.report.State = types.LogValidated

	if head.StartSequence != workingSeq {
		lr.report.State = types.LogSkipped
		lr.report.Err = types.ErrStaleLog
		lr.report.Reason = fmt.Sprintf("stale: log starts at sequence %d, hive is at %d",
			head.StartSequence, workingSeq)
		e.log.Warn("log skipped",
			zap.String("log", name),
			zap.Uint32("logStart", head.StartSequence),
			zap.Uint32("hiveSequence", workingSeq))
		return lr
	}

	lr.report.State = types.LogReplaying
	off := format.LogHeaderSize
	for page := uint32(0); page < head.PageCount; page++ {
		rec, next, err := format.NextDirtyPage(in.data, off)
		if err != nil {
			lr.report.State = types.LogPartiallyApplied
			lr.report.Reason = fmt.Sprintf("record %d: %v", page, err)
			e.log.Warn("replay stopped", zap.String("log", name), zap.Uint32("record", page), zap.Error(err))
			return lr
		}
		if err := rec.VerifyChecksum(); err != nil {
			lr.report.State = types.LogPartiallyApplied
			lr.report.Err = types.ErrLogChecksum
			lr.report.Reason = fmt.Sprintf("record %d: %v", page, err)
			e.log.Warn("replay stopped on checksum",
				zap.String("log", name),
				zap.Uint32("record", page),
				zap.Uint32("hiveOffset", rec.HiveOffset))
			return lr
		}
		grown, err := applyPage(lr.image, rec)
		if err != nil {
			lr.report.State = types.LogPartiallyApplied
			lr.report.Reason = fmt.Sprintf("record %d: %v", page, err)
			e.log.Warn("replay stopped", zap.String("log", name), zap.Uint32("record", page), zap.Error(err))
			return lr
		}
		lr.image = grown
		lr.report.PagesApplied++
		off = next
	}

	lr.report.State = types.LogApplied
	e.log.Debug("log applied",
		zap.String("log", name),
		zap.Int("pages", lr.report.PagesApplied),
		zap.Uint32("endSequence", head.EndSequence))
	return lr
}

// applyPage overwrites the byte range a dirty page names, growing the image
// when the page extends past the current end. Growth is bounded per page and
// for the image overall.
func applyPage(image []byte, rec format.DirtyPage) ([]byte, error) {
	start := int(rec.HiveOffset)
	end := start + int(rec.Size)
	if end < start {
		return nil, fmt.Errorf("page range overflow at %#x", rec.HiveOffset)
	}
	if end > format.MaxHiveSize {
		return nil, fmt.Errorf("page at %#x would grow hive past %d bytes", rec.HiveOffset, format.MaxHiveSize)
	}
	if end > len(image) {
		extension := end - len(image)
		if extension > format.MaxPageExtension {
			return nil, fmt.Errorf("page at %#x extends hive by %d bytes (max %d)",
				rec.HiveOffset, extension, format.MaxPageExtension)
		}
		image = append(image, make([]byte, extension)...)
	}
	copy(image[start:end], rec.Data)
	return image, nil
}

var _ types.LogApplier = (*Engine)(nil)
