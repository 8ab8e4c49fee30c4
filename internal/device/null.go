package device

import "context"

// nullInput captures digital silence.
type nullInput struct {
	config StreamConfig
}

func newNullInput(config StreamConfig) *nullInput {
	return &nullInput{config: config}
}

func (d *nullInput) Name() string         { return "null" }
func (d *nullInput) Config() StreamConfig { return d.config }
func (d *nullInput) Close() error         { return nil }

func (d *nullInput) Run(ctx context.Context, onCapture func(frame []int16)) error {
	buf := make([]int16, d.config.BufferLen())
	return runClock(ctx, d.config.Period(), func() error {
		clear(buf)
		onCapture(buf)
		return nil
	})
}

// nullOutput pulls audio at the device pace and discards it.
type nullOutput struct {
	config StreamConfig
}

func newNullOutput(config StreamConfig) *nullOutput {
	return &nullOutput{config: config}
}

func (d *nullOutput) Name() string         { return "null" }
func (d *nullOutput) Config() StreamConfig { return d.config }
func (d *nullOutput) Close() error         { return nil }

func (d *nullOutput) Run(ctx context.Context, onPlayback func(out []int16)) error {
	buf := make([]int16, d.config.BufferLen())
	return runClock(ctx, d.config.Period(), func() error {
		onPlayback(buf)
		return nil
	})
}
