package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wayseat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		printConfig(cmd.OutOrStdout(), config.Get(), config.GetConfigPath())
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save current configuration to file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(); err != nil {
			return err
		}
		logger.Infof("Configuration saved to: %s", config.GetConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Write a configuration file. The seat section is filled in through an
interactive form unless --defaults is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		seatCfg := config.Get().Seat
		if useDefaults, _ := cmd.Flags().GetBool("defaults"); !useDefaults {
			if err := runSeatForm(&seatCfg); err != nil {
				return err
			}
		}

		if err := config.UpdateSeat(seatCfg); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

func runSeatForm(seatCfg *config.SeatConfig) error {
	maxSeats := strconv.Itoa(seatCfg.MaxSeats)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Seat name").
				Description("Name announced to clients, e.g. seat0").
				Value(&seatCfg.Name).
				Validate(validateSeatName),
			huh.NewInput().
				Title("Maximum seats").
				Description("How many seats may exist at once").
				Value(&maxSeats).
				Validate(validateMaxSeats),
			huh.NewMultiSelect[string]().
				Title("Capabilities").
				Description("Devices enabled when the seat starts").
				Options(huh.NewOptions("pointer", "keyboard", "touch")...).
				Value(&seatCfg.Capabilities),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("configuration cancelled: %w", err)
	}

	n, err := strconv.Atoi(maxSeats)
	if err != nil {
		return err
	}
	seatCfg.MaxSeats = n
	return nil
}

func validateSeatName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("seat name cannot be empty")
	}
	return nil
}

func validateMaxSeats(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > seat.DefaultMaxSeats {
		return fmt.Errorf("must be a number between 1 and %d", seat.DefaultMaxSeats)
	}
	return nil
}

func printConfig(w io.Writer, cfg *config.Config, path string) {
	lines := []string{
		ui.FormatHeader("wayseat configuration"),
		ui.FormatField("file", path),
		"",
		ui.HeaderStyle.Render("[seat]"),
		ui.FormatField("name", cfg.Seat.Name),
		ui.FormatField("max_seats", strconv.Itoa(cfg.Seat.MaxSeats)),
		ui.FormatField("caps", strings.Join(cfg.Seat.Capabilities, ", ")),
		"",
		ui.HeaderStyle.Render("[grabs]"),
		ui.FormatField("move", strconv.Itoa(cfg.Grabs.MovePriority)),
		ui.FormatField("resize", strconv.Itoa(cfg.Grabs.ResizePriority)),
		ui.FormatField("touch_move", strconv.Itoa(cfg.Grabs.TouchMovePriority)),
		ui.FormatField("task_switch", strconv.Itoa(cfg.Grabs.TaskSwitchPriority)),
		"",
		ui.HeaderStyle.Render("[logging]"),
		ui.FormatField("log_level", cfg.Logging.LogLevel),
		ui.FormatField("trace", strconv.FormatBool(cfg.Logging.TraceEvents)),
		"",
		ui.HeaderStyle.Render("[emergency]"),
		ui.FormatField("keys", fmt.Sprint(cfg.Emergency.Keys)),
		ui.FormatField("trigger", cfg.Emergency.TriggerFile),
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	configInitCmd.Flags().Bool("defaults", false, "Skip the interactive form and write defaults")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configInitCmd)
}
