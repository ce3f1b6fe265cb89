// ABOUTME: Builds pipeline components from configuration
// ABOUTME: Shared by run, sync, payload, stats and mcp so every command sees the same wiring
package cli

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/keenanpereira/pulse/analytics"
	"github.com/keenanpereira/pulse/brief"
	"github.com/keenanpereira/pulse/config"
	"github.com/keenanpereira/pulse/crm"
	"github.com/keenanpereira/pulse/db"
	"github.com/keenanpereira/pulse/handlers"
	"github.com/keenanpereira/pulse/llm"
	"github.com/keenanpereira/pulse/notify"
	"github.com/keenanpereira/pulse/pipeline"
	"github.com/keenanpereira/pulse/sync"
)

func newCRMClient(cfg *config.Config, logger *log.Logger) *crm.Client {
	return crm.NewClient(crm.ClientOptions{
		APIURL:       cfg.Zoho.APIURL,
		AccountsURL:  cfg.Zoho.AccountsURL,
		ClientID:     cfg.Zoho.ClientID,
		ClientSecret: cfg.Zoho.ClientSecret,
		RefreshToken: cfg.Zoho.RefreshToken,
		PerPage:      cfg.Zoho.PerPage,
		MaxRetries:   cfg.Zoho.MaxRetries,
		Logger:       logger.With("component", "crm"),
	})
}

func newOrchestrator(cfg *config.Config, store *db.Store, logger *log.Logger) *sync.Orchestrator {
	return sync.NewOrchestrator(newCRMClient(cfg, logger), store, sync.Options{
		ContinueOnFetchError: cfg.Sync.ContinueOnFetchError,
		FetchTimeout:         cfg.Timeouts.Fetch,
		DBTimeout:            cfg.Timeouts.DB,
		Logger:               logger.With("component", "sync"),
	})
}

func thresholds(cfg *config.Config) analytics.Thresholds {
	return analytics.Thresholds{
		OverloadLeads:    cfg.Anomaly.OverloadLeads,
		OverloadPipeline: cfg.Anomaly.OverloadPipeline,
		ToxicJunkPct:     cfg.Anomaly.ToxicJunkPct,
		ToxicMinTotal:    cfg.Anomaly.ToxicMinTotal,
	}
}

func newAnalytics(cfg *config.Config, store *db.Store, loc *time.Location, logger *log.Logger) (*analytics.Aggregator, *analytics.Detector) {
	labels := analytics.LabelsFrom(cfg.Labels.JunkStatuses, cfg.Labels.WonStage, cfg.Labels.LostStage)
	aggregator := analytics.NewAggregator(store, labels, loc, logger.With("component", "analytics"))
	detector := analytics.NewDetector(thresholds(cfg), cfg.Report.Currency)
	return aggregator, detector
}

func newAnalyticsHandlers(cfg *config.Config, store *db.Store, logger *log.Logger) (*handlers.AnalyticsHandlers, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	aggregator, detector := newAnalytics(cfg, store, loc, logger)
	return handlers.NewAnalyticsHandlers(aggregator, detector, loc), nil
}

func newRunner(cfg *config.Config, store *db.Store, logger *log.Logger) (*pipeline.Runner, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	completer, err := llm.New(llm.Options{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, err
	}
	sender := notify.NewTwilio(notify.TwilioOptions{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
		ToNumber:   cfg.Twilio.ToNumber,
		BaseURL:    cfg.Twilio.BaseURL,
		Logger:     logger.With("component", "twilio"),
	})

	aggregator, detector := newAnalytics(cfg, store, loc, logger)
	generator := brief.NewGenerator(completer, cfg.Timeouts.LLM, logger.With("component", "generator"))
	dispatcher := brief.NewDispatcher(store, sender, brief.DispatcherOptions{
		SaveTimeout: cfg.Timeouts.DB,
		SendTimeout: cfg.Timeouts.Send,
		Logger:      logger.With("component", "dispatch"),
	})

	return pipeline.NewRunner(store, newOrchestrator(cfg, store, logger), aggregator, detector, generator, dispatcher, pipeline.Options{
		LockName:  cfg.Lock.Name,
		LockTTL:   cfg.Lock.TTL,
		Budget:    cfg.Report.ChannelBudget,
		DBTimeout: cfg.Timeouts.DB,
		Logger:    logger.With("component", "pipeline"),
	}), nil
}
