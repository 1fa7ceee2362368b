package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/config"
	"tonearm/internal/queue"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// apiClient builds a client for the configured daemon API bind. Returns nil
// when the config carries no bind address.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	return api.NewClient(bind, cfg.Paths.APIToken)
}

// withQueue runs fn against the daemon API when it answers and falls back
// to direct store access otherwise. Errors other than an unreachable API,
// such as a rejected token, surface instead of silently bypassing the
// daemon.
func (c *commandContext) withQueue(cmdCtx context.Context, fn func(context.Context, queueAPI) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if client != nil {
		_, statusErr := client.Status(cmdCtx)
		if statusErr == nil {
			return fn(cmdCtx, &queueHTTPAdapter{client: client})
		}
		if !api.IsUnavailable(statusErr) {
			return statusErr
		}
	}

	cfg := c.configValue()
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmdCtx, &queueStoreAdapter{store: store, service: api.NewQueueService(store)})
}

// withStore runs fn against the queue store directly. Staging cleanup
// touches local disk state alongside the database, so it never routes
// through the daemon API.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
