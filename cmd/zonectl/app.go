package main

import (
	"zonectl/internal/commands"
	"zonectl/internal/config"
	"zonectl/internal/logger"
	"zonectl/internal/metrics"
	"zonectl/internal/protocol"
	"zonectl/internal/transport"
)

// app holds the pieces every subcommand needs: config, logger, table and engine.
type app struct {
	cfg       config.Config
	log       *logger.Logger
	table     *commands.Table
	anomalies []commands.Anomaly
	transport transport.Transport
	engine    *protocol.Engine
}

func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.simulated {
		cfg.Transport.Mode = config.ModeSimulated
	}
	return cfg, nil
}

// loadTable reads the command table and counts its anomalies.
func loadTable(cfg config.Config, log *logger.Logger) (*commands.Table, []commands.Anomaly, error) {
	table, anomalies, err := commands.LoadFile(cfg.Table.Path, log.Named("table"))
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordTableAnomalies(len(anomalies))
	return table, anomalies, nil
}

// openTransport opens the configured link. A serial port that cannot be opened
// is logged and yields a nil transport, so every request reports it unavailable.
func openTransport(cfg config.Config, log *logger.Logger) transport.Transport {
	if cfg.Simulated() {
		return transport.NewSimulated(transport.SimConfig{
			ErrorProbability: cfg.Simulator.ErrorProbability,
			DropProbability:  cfg.Simulator.DropProbability,
			Latency:          cfg.Simulator.Latency,
			ReadTimeout:      cfg.Serial.Timeout,
		}, log.Named("simulated"))
	}

	sp, err := transport.OpenSerial(transport.SerialConfig{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.Timeout,
	}, log.Named("serial"))
	if err != nil {
		log.Errorw("serial_open_failed", "port", cfg.Serial.Port, "err", err)
		return nil
	}
	return sp
}

// newApp loads config, logger, table and transport, and builds the engine.
func newApp(opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := logger.Get(cfg.Log.Level)
	metrics.RegisterMetrics()

	table, anomalies, err := loadTable(cfg, log)
	if err != nil {
		return nil, err
	}

	tr := openTransport(cfg, log)
	engine := protocol.New(table, tr,
		protocol.WithSettleDelay(cfg.Protocol.SettleDelay),
		protocol.WithLogger(log),
	)
	return &app{
		cfg:       cfg,
		log:       log,
		table:     table,
		anomalies: anomalies,
		transport: tr,
		engine:    engine,
	}, nil
}

func (a *app) Close() {
	if a.transport == nil {
		return
	}
	if err := a.transport.Close(); err != nil {
		a.log.Warnw("transport_close_failed", "err", err)
	}
}
