package debug

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sarah/internal/core/domain"

	"github.com/rs/zerolog/log"
)

const Name = "debug"

const kb = 1024
const debugTemplate = `allocated mem: %d KB
goroutines running: %d
heap: %d KB
stack: %d KB
compiled with %s for %s-%s`
const metricCount = 3

// Plugin reports runtime statistics of the bot process.
type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (*Plugin) Name() string {
	return Name
}

func (*Plugin) Commands(_ string) []domain.CommandSpec {
	return []domain.CommandSpec{{Name: ".debug", Handler: Stats}}
}

func (*Plugin) Schedules(_ string) []domain.ScheduleSpec {
	return nil
}

func Stats(_ context.Context, msg domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	data := make([]metrics.Sample, metricCount)
	data[0] = metrics.Sample{Name: "/memory/classes/heap/objects:bytes"}
	data[1] = metrics.Sample{Name: "/memory/classes/heap/stacks:bytes"}
	data[2] = metrics.Sample{Name: "/memory/classes/total:bytes"}

	metrics.Read(data)

	log.Debug().Str("user", msg.Sender).Str("handler", Name).Msg("reporting runtime stats")

	var goos, goarch string
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "GOOS":
				goos = setting.Value
			case "GOARCH":
				goarch = setting.Value
			}
		}
	}

	if goos == "" {
		goos, goarch = runtime.GOOS, runtime.GOARCH
	}

	return domain.Text(fmt.Sprintf(
		debugTemplate,
		data[2].Value.Uint64()/kb,
		runtime.NumGoroutine(),
		data[0].Value.Uint64()/kb,
		data[1].Value.Uint64()/kb,
		runtime.Version(), goos, goarch,
	)), nil
}
