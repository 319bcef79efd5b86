package migrate

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ed-fi-alliance-oss/meadowlark/cmd/util"
)

// bindRunFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlags(command *cobra.Command, _ []string) {
	flags := command.Flags()

	util.MustBindPFlag(datastoreEngineKey, flags.Lookup(datastoreEngineFlag))
	util.MustBindPFlag(datastoreURIKey, flags.Lookup(datastoreURIFlag))
	util.MustBindPFlag(datastoreUsernameKey, flags.Lookup(datastoreUsernameFlag))
	util.MustBindPFlag(datastorePasswordKey, flags.Lookup(datastorePasswordFlag))
	util.MustBindPFlag(versionFlag, flags.Lookup(versionFlag))
	util.MustBindPFlag(timeoutFlag, flags.Lookup(timeoutFlag))
	util.MustBindPFlag(verboseMigrationFlag, flags.Lookup(verboseMigrationFlag))

	util.MustBindEnv(logFormatKey)
	util.MustBindEnv(logLevelKey)
	viper.SetDefault(logFormatKey, "text")
	viper.SetDefault(logLevelKey, "info")
}
