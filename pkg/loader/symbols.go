package loader

import (
	"context"
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/platinummonkey/hub/pkg/contract"
	"github.com/platinummonkey/hub/pkg/provider"
)

// Symbols is the hand-maintained export table for the shared packages. Every
// boundary receives it, so plugin code importing pkg/contract or pkg/provider
// binds to the host's single copy of those types. Extend it when a new symbol
// joins the shared surface.
var Symbols = make(interp.Exports)

func init() {
	Symbols["github.com/platinummonkey/hub/pkg/contract/contract"] = map[string]reflect.Value{
		"Service":        reflect.ValueOf((*contract.Service)(nil)),
		"Describable":    reflect.ValueOf((*contract.Describable)(nil)),
		"Greeter":        reflect.ValueOf((*contract.Greeter)(nil)),
		"GreeterService": reflect.ValueOf((*contract.GreeterService)(nil)),

		"_Service":        reflect.ValueOf((*_contract_Service)(nil)),
		"_Describable":    reflect.ValueOf((*_contract_Describable)(nil)),
		"_Greeter":        reflect.ValueOf((*_contract_Greeter)(nil)),
		"_GreeterService": reflect.ValueOf((*_contract_GreeterService)(nil)),
	}

	Symbols["github.com/platinummonkey/hub/pkg/provider/provider"] = map[string]reflect.Value{
		"Metadata":          reflect.ValueOf((*provider.Metadata)(nil)),
		"Platform":          reflect.ValueOf((*provider.Platform)(nil)),
		"SelectionCriteria": reflect.ValueOf((*provider.SelectionCriteria)(nil)),
		"PlatformLinux":     reflect.ValueOf(provider.PlatformLinux),
		"PlatformDarwin":    reflect.ValueOf(provider.PlatformDarwin),
		"PlatformWindows":   reflect.ValueOf(provider.PlatformWindows),
		"PlatformAll":       reflect.ValueOf(provider.PlatformAll),
		"ParsePlatform":     reflect.ValueOf(provider.ParsePlatform),
	}
}

// Interface wrappers let interpreted types satisfy the host-side interfaces.

type _contract_Service struct {
	IValue interface{}
	WStart func(ctx context.Context) error
	WStop  func(ctx context.Context) error
}

func (w _contract_Service) Start(ctx context.Context) error { return w.WStart(ctx) }
func (w _contract_Service) Stop(ctx context.Context) error  { return w.WStop(ctx) }

type _contract_Describable struct {
	IValue            interface{}
	WProviderMetadata func() provider.Metadata
}

func (w _contract_Describable) ProviderMetadata() provider.Metadata { return w.WProviderMetadata() }

type _contract_Greeter struct {
	IValue interface{}
	WGreet func(ctx context.Context, name string) (string, error)
}

func (w _contract_Greeter) Greet(ctx context.Context, name string) (string, error) {
	return w.WGreet(ctx, name)
}

type _contract_GreeterService struct {
	IValue            interface{}
	WStart            func(ctx context.Context) error
	WStop             func(ctx context.Context) error
	WProviderMetadata func() provider.Metadata
	WGreet            func(ctx context.Context, name string) (string, error)
}

func (w _contract_GreeterService) Start(ctx context.Context) error { return w.WStart(ctx) }
func (w _contract_GreeterService) Stop(ctx context.Context) error  { return w.WStop(ctx) }
func (w _contract_GreeterService) ProviderMetadata() provider.Metadata {
	return w.WProviderMetadata()
}
func (w _contract_GreeterService) Greet(ctx context.Context, name string) (string, error) {
	return w.WGreet(ctx, name)
}
