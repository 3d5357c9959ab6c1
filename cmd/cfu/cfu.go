package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root"
	"github.com/google/cloud-forensics-utls/internal/telemetry"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cmd     = root.NewRootCmd()
)

func init() {
	viper.SetEnvPrefix("CFU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cobra.OnInitialize(initConfig)
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.cfu.yaml)")
	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindEnv("config", "CFU_CONFIG", "CLOUDFORENSICS_CONFIG")

	cmd.PersistentFlags().String("case", "", "Case identifier stamped onto every artifact this tool creates")
	viper.BindPFlag("case", cmd.PersistentFlags().Lookup("case"))
	viper.BindEnv("case", "CFU_CASE", "CLOUDFORENSICS_CASE")

	viper.BindEnv("assume-role", "CFU_ASSUME_ROLE", "CLOUDFORENSICS_ASSUME_ROLE")
	viper.BindEnv("evidence-bucket", "CFU_EVIDENCE_BUCKET", "CLOUDFORENSICS_EVIDENCE_BUCKET")
}

func main() {
	ctx := context.Background()

	shutdown, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		log.Warn("Failed to initialize telemetry", "error", err)
	}

	args := os.Args[1:]
	command := "help"
	if len(args) > 0 {
		command = args[0]
	}
	ctx, span := telemetry.StartRootSpan(ctx, command, args)

	execErr := cmd.ExecuteContext(ctx)
	if execErr != nil {
		telemetry.SetSpanError(span, execErr)
	} else {
		telemetry.SetSpanSuccess(span)
	}
	span.End()

	if shutdown != nil {
		if err := shutdown(context.Background()); err != nil {
			log.Debug("Failed to flush telemetry", "error", err)
		}
	}

	if execErr != nil {
		os.Exit(1)
	}
}

func initConfig() {
	configFile := cfgFile
	if configFile == "" {
		configFile = viper.GetString("config")
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			log.Error("Can't find home directory", "error", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".cfu")
		viper.SetConfigType("yaml")
		viper.SafeWriteConfig()
	}

	if err := viper.ReadInConfig(); err != nil {
		log.Error("Can't read config", "error", err)
		os.Exit(1)
	}
}
