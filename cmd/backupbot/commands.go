package main

import (
	"fmt"
	"time"

	"github.com/jdelaire/backupbot/core"
	"github.com/jdelaire/backupbot/core/ops"
	"github.com/jdelaire/backupbot/internal/backup"
	"github.com/jdelaire/backupbot/internal/config"
)

type command struct {
	tokens []string
	op     ops.Op
}

// registerCommands adds the built-in commands in help order, then the custom
// commands from the config file. A duplicate token is a configuration error.
func registerCommands(d *core.Dispatcher, reg *ops.Registry, cfg *config.Config,
	svc *backup.Service, pinger ops.Pinger, metrics *core.Metrics) error {
	listener := func() string {
		return fmt.Sprintf("Listener: %s, cursor at %d", d.State(), d.Position())
	}
	started := time.Now()
	counters := func() string {
		return metrics.Snapshot().String()
	}

	builtin := []command{
		{[]string{"/help", "/ayuda"}, &ops.HelpOp{Registry: reg}},
		{[]string{"/start_backup", "/iniciar_backup"}, &ops.StartBackupOp{Service: svc}},
		{[]string{"/stop_backup", "/detener_backup"}, &ops.StopBackupOp{Service: svc}},
		{[]string{"/status", "/estado"}, &ops.StatusOp{Service: svc, Listener: listener, Started: started}},
		{[]string{"/backup_now", "/backup_manual"}, &ops.ManualBackupOp{Service: svc}},
		{[]string{"/stats", "/estadisticas"}, &ops.StatsOp{Service: svc, Listener: counters}},
		{[]string{"/config", "/configuracion"}, &ops.ConfigOp{Summary: cfg.Summary}},
		{[]string{"/clear_history", "/limpiar_historial"}, &ops.ClearHistoryOp{Service: svc}},
		{[]string{"/device", "/dispositivo"}, &ops.DeviceOp{}},
		{[]string{"/restart", "/reiniciar"}, &ops.RestartOp{Service: svc}},
		{[]string{"/logs"}, &ops.LogsOp{Path: cfg.Log.File}},
		{[]string{"/test", "/ping"}, &ops.PingOp{Pinger: pinger}},
	}
	for _, c := range cfg.Commands {
		builtin = append(builtin, command{
			tokens: []string{c.Token},
			op: &ops.ShellOp{
				CmdName: c.Token,
				Desc:    c.Description,
				Command: c.Command,
				WorkDir: c.WorkDir,
			},
		})
	}

	for _, c := range builtin {
		for _, tok := range c.tokens {
			if err := d.Register(tok, c.op); err != nil {
				return fmt.Errorf("register %s: %w", tok, err)
			}
		}
	}
	return nil
}
