package fx

import (
	"testing"

	"go.uber.org/fx"
)

func TestModulesResolve(t *testing.T) {
	if err := fx.ValidateApp(CoreModule, fx.NopLogger); err != nil {
		t.Errorf("core graph: %v", err)
	}
	if err := fx.ValidateApp(Module, fx.NopLogger); err != nil {
		t.Errorf("server graph: %v", err)
	}
}
