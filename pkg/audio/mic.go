package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Microphone is a malgo-backed capture Source. It holds an exclusive claim
// on the device between Start and Stop.
type Microphone struct {
	cfg Config

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// NewMicrophone creates a microphone source at the given format. Nothing is
// claimed until Start.
func NewMicrophone(cfg Config) *Microphone {
	if cfg.SampleRate <= 0 {
		cfg = CaptureConfig()
	}
	return &Microphone{cfg: cfg}
}

// Start opens the default capture device and begins delivering s16le PCM to
// onData from the device thread.
func (m *Microphone) Start(onData func([]byte)) error {
	if onData == nil {
		return fmt.Errorf("microphone callback is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("microphone already started")
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	allocated, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			onData(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(allocated.Context, deviceConfig, callbacks)
	if err != nil {
		_ = allocated.Uninit()
		return fmt.Errorf("init microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = allocated.Uninit()
		return fmt.Errorf("start microphone: %w", err)
	}

	m.ctx = allocated
	m.device = device
	m.started = true
	return nil
}

// Stop releases the capture device. Idempotent.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
		m.ctx = nil
	}
	return nil
}
