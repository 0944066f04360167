// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-carsoccer/pkg/entity"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

// NullRenderer draws nothing and logs every call at debug level.
// Headless servers use it so the match can still be rendered each frame.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a NullRenderer logging through logger, or a default logger if nil
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger.WithComponent("null_renderer")}
}

// Clear implements entity.Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called")
}

// Present implements entity.Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(context.Background(), "Present called")
}

// RenderBall implements entity.Renderer.
func (d *NullRenderer) RenderBall(ball *entity.Ball) {
	ctx := context.Background()
	if ball == nil {
		d.logger.Debug(ctx, "RenderBall called with nil ball")
		return
	}
	d.logger.Debug(ctx, "RenderBall called",
		"position", ball.Position,
		"shadow_y", ball.Shadow.Y(),
		"speed", ball.Speed(),
	)
}

// RenderCar implements entity.Renderer.
func (d *NullRenderer) RenderCar(car *entity.Car) {
	ctx := context.Background()
	if car == nil {
		d.logger.Debug(ctx, "RenderCar called with nil car")
		return
	}
	d.logger.Debug(ctx, "RenderCar called",
		"position", car.Position,
		"rotation", car.Rotation,
		"speed", car.Velocity.Z(),
	)
}
