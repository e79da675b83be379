package service

import (
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"slices"

	"github.com/rs/zerolog/log"
)

// PluginLoader activates compiled-in plugins by name. A plugin that is unknown or fails
// while declaring its commands is skipped.
type PluginLoader struct {
	plugins map[string]port.Plugin
}

func NewPluginLoader(plugins ...port.Plugin) *PluginLoader {
	l := &PluginLoader{plugins: make(map[string]port.Plugin, len(plugins))}
	for _, p := range plugins {
		l.plugins[p.Name()] = p
	}

	return l
}

// Available lists the names of the known plugins, sorted.
func (l *PluginLoader) Available() []string {
	names := make([]string, 0, len(l.plugins))
	for name := range l.plugins {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// LoadAll loads the configured plugins in order and returns the names that loaded.
func (l *PluginLoader) LoadAll(scope string, registry port.Registry, configs domain.PluginConfigs) []string {
	var loaded []string

	for _, c := range configs {
		err := l.Load(scope, registry, c.Name, configs.Get(c.Name))
		if err != nil {
			log.Warn().Err(err).Str("plugin", c.Name).Msg("failed to load plugin, skipping")
			continue
		}

		loaded = append(loaded, c.Name)
	}

	return loaded
}

// Load runs the declaration pass of the named plugin and writes the result to registry.
// Loading a plugin again replaces its entries in place.
func (l *PluginLoader) Load(scope string, registry port.Registry, name string, config domain.Config) error {
	plugin, ok := l.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownPlugin, name)
	}

	commands, schedules, err := declare(plugin, scope)
	if err != nil {
		return err
	}

	for _, spec := range commands {
		registry.Register(spec.Bind(name, config))
	}

	for _, spec := range schedules {
		cmd, ok := spec.Bind(name, config)
		if !ok {
			log.Warn().Str("plugin", name).Str("schedule", spec.Name).
				Msg("missing configuration for schedule job, skipping")
			continue
		}

		registry.RegisterSchedule(cmd)
	}

	log.Info().Str("plugin", name).Int("commands", len(commands)).Int("schedules", len(schedules)).
		Msg("loaded plugin")

	return nil
}

func declare(plugin port.Plugin, scope string) (commands []domain.CommandSpec,
	schedules []domain.ScheduleSpec, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked while declaring: %v", plugin.Name(), r)
		}
	}()

	return plugin.Commands(scope), plugin.Schedules(scope), nil
}
