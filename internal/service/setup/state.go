package setup

import "github.com/sandevgo/distill/internal/config"

type SetupState struct {
	Config *config.ProviderConfig
}

func NewSetupState() *SetupState {
	return &SetupState{
		Config: &config.ProviderConfig{},
	}
}
