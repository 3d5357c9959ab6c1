package root

import (
	"github.com/MakeNowJust/heredoc/v2"

	"github.com/charmbracelet/log"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/aws"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/config"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/kube"
	"github.com/google/cloud-forensics-utls/cmd/cfu/root/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfu <command> <subcommand> [flags]",
		Short: "Cloud forensics utilities",
		Long:  `Enumerate cloud resources and acquire disk evidence for incident response.`,
		Example: heredoc.Doc(`
			$ cfu aws instances --region us-east-1
			$ cfu aws copy-disk --region us-east-1 --volume vol-0123456789abcdef0
			$ cfu kube pods --node worker-1 --running
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel := viper.GetString("log-level")
			if logLevel == "" {
				logLevel = "info"
			}

			switch logLevel {
			case "debug":
				log.SetLevel(log.DebugLevel)
			case "info":
				log.SetLevel(log.InfoLevel)
			case "warn":
				log.SetLevel(log.WarnLevel)
			case "error":
				log.SetLevel(log.ErrorLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set the logging level (debug, info, warn, error)")
	viper.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(aws.NewAWSCmd())
	cmd.AddCommand(kube.NewKubeCmd())
	cmd.AddCommand(config.NewConfigCmd())
	cmd.AddCommand(version.NewVersionCmd())

	return cmd
}
