package cli

import (
	"github.com/LightForgeLabsStudio/AIDE/internal/config"
)

func execPrintConfig(e *Env, o *IO, path string) error {
	cfg, err := e.loadConfig(o, path, false)
	if err != nil {
		return err
	}

	formatted, err := config.Format(cfg)
	if err != nil {
		return err
	}

	o.Println(formatted)
	o.Println("")
	o.Println("# sources")

	if cfg.Source == "" {
		o.Println("(defaults only)")
	} else {
		o.Println("config=" + cfg.Source)
	}

	return nil
}
