package usecase

import (
	"github.com/geo-drilldown/internal/colorscale"
	"github.com/geo-drilldown/internal/pkg/errors"
	"github.com/geo-drilldown/internal/usecase/dto"
)

func (uc *DrillDownUseCase) frame(s *session) *dto.Frame {
	snap := s.ctrl.Snapshot()
	view := snap.View

	var selected string
	if entry := view.Path.Get(view.Level); entry != nil {
		selected = entry.Code
	}

	features := make([]dto.FeatureView, 0, len(snap.Features))
	for _, f := range snap.Features {
		v := f.Metrics.Value(view.Metric)
		features = append(features, dto.FeatureView{
			Code:       f.Code,
			Name:       f.Name,
			ParentCode: f.ParentCode,
			Value:      v,
			Label:      colorscale.FormatValue(view.Metric, v),
			Color:      snap.Scale.ColorFor(v).Hex(),
			Hovered:    f.Code == view.HoveredCode,
			Selected:   f.Code == selected,
			Metrics:    f.Metrics,
			Geometry:   f.Geometry,
		})
	}

	frame := &dto.Frame{
		SessionID:   s.id,
		Level:       view.Level,
		Scope:       snap.Scope.String(),
		Path:        view.Path,
		Metric:      view.Metric,
		HoveredCode: view.HoveredCode,
		Loading:     snap.Loading,
		Features:    features,
		Scale:       snap.Scale,
		Legend:      snap.Scale.LegendSteps(uc.cfg.LegendSteps),
		Breadcrumbs: view.Path.Breadcrumbs(uc.cfg.RootLabel),
	}
	if snap.Err != nil {
		frame.Error = &dto.FrameError{Code: errors.CodeFetchFailed, Message: snap.Err.Error()}
		if appErr, ok := errors.As(snap.Err); ok {
			frame.Error.Code = appErr.Code
		}
	}
	return frame
}
