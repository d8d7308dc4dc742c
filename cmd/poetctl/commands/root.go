package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "poetctl",
	Short: "PoET enclave CLI",
	Long:  `Command line interface for driving a PoET enclave simulator over HTTP.`,
}

var cfgFile string

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.poetctl.yaml)")
	rootCmd.PersistentFlags().String("server", "http://127.0.0.1:8080", "poet enclave HTTP service address")
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(certificateCmd)
	rootCmd.AddCommand(infoCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".poetctl")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("POETCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("error reading config file: %s\n", err)
		}
	}
}

func serverAddr() string {
	return viper.GetString("server")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
