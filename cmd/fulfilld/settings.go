package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/velmie/fulfill"
)

// settingsSeed is the YAML shape of the settings document.
type settingsSeed struct {
	Regions          []regionSeed `yaml:"regions"`
	Origins          []string     `yaml:"origins"`
	AutoRefund       *bool        `yaml:"auto_refund,omitempty"`
	Operators        []string     `yaml:"operators"`
	PurchaseTemplate string       `yaml:"purchase_template,omitempty"`
	CodeTemplate     string       `yaml:"code_template,omitempty"`
	OrderLinkFormat  string       `yaml:"order_link_format,omitempty"`
}

type regionSeed struct {
	Code     string  `yaml:"code"`
	Name     string  `yaml:"name"`
	MinPrice float64 `yaml:"min_price"`
	MaxPrice float64 `yaml:"max_price"`
}

func (s settingsSeed) settings() fulfill.Settings {
	settings := fulfill.Settings{
		Regions:          make([]fulfill.Region, 0, len(s.Regions)),
		Origins:          s.Origins,
		AutoRefund:       true,
		Operators:        s.Operators,
		PurchaseTemplate: s.PurchaseTemplate,
		CodeTemplate:     s.CodeTemplate,
		OrderLinkFormat:  s.OrderLinkFormat,
	}
	if s.AutoRefund != nil {
		settings.AutoRefund = *s.AutoRefund
	}
	for _, region := range s.Regions {
		settings.Regions = append(settings.Regions, fulfill.Region{
			Code:     region.Code,
			Name:     region.Name,
			MinPrice: decimal.NewFromFloat(region.MinPrice),
			MaxPrice: decimal.NewFromFloat(region.MaxPrice),
		})
	}

	return settings.WithDefaults()
}

func seedFromSettings(settings fulfill.Settings) settingsSeed {
	autoRefund := settings.AutoRefund
	seed := settingsSeed{
		Regions:          make([]regionSeed, 0, len(settings.Regions)),
		Origins:          settings.Origins,
		AutoRefund:       &autoRefund,
		Operators:        settings.Operators,
		PurchaseTemplate: settings.PurchaseTemplate,
		CodeTemplate:     settings.CodeTemplate,
		OrderLinkFormat:  settings.OrderLinkFormat,
	}
	for _, region := range settings.Regions {
		seed.Regions = append(seed.Regions, regionSeed{
			Code:     region.Code,
			Name:     region.Name,
			MinPrice: region.MinPrice.InexactFloat64(),
			MaxPrice: region.MaxPrice.InexactFloat64(),
		})
	}

	return seed
}

func readSeed(path string) (fulfill.Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fulfill.Settings{}, fmt.Errorf("read seed: %w", err)
	}

	var seed settingsSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fulfill.Settings{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	settings := seed.settings()
	if err := settings.Validate(); err != nil {
		return fulfill.Settings{}, fmt.Errorf("seed %s: %w", path, err)
	}

	return settings, nil
}

func newSettingsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the operator settings document",
	}
	cmd.AddCommand(newSettingsImportCmd(v), newSettingsShowCmd(v))

	return cmd
}

func newSettingsImportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace the stored settings with a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := readSeed(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log, err := newZap(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, store, err := openMySQL(ctx, cfg.MySQL, newLogger(log))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.SaveSettings(ctx, settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d regions, %d operators\n", len(settings.Regions), len(settings.Operators))

			return nil
		},
	}
}

func newSettingsShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log, err := newZap(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, store, err := openMySQL(ctx, cfg.MySQL, newLogger(log))
			if err != nil {
				return err
			}
			defer db.Close()

			settings, err := store.LoadSettings(ctx)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(seedFromSettings(settings)); err != nil {
				return err
			}

			return enc.Close()
		},
	}
}
