package config_test

import (
	"fmt"

	"github.com/normanking/pmcortex/internal/config"
)

// ExampleConfig_Validate shows a hand-edited value being rejected.
func ExampleConfig_Validate() {
	cfg := config.Default()
	fmt.Println(cfg.Validate() == nil)

	cfg.Logging.Level = "verbose"
	fmt.Println(cfg.Validate())
	// Output:
	// true
	// invalid log level 'verbose', must be one of: debug, info, warn, error
}
