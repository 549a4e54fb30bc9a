package modgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeMetadataProvider_Dependencies(t *testing.T) {
	p := NewTypeMetadataProvider(nil)

	deps, err := p.Dependencies(TypeOf[apiModule]())
	require.NoError(t, err)
	assert.Equal(t, []ModuleType{TypeOf[cacheModule](), TypeOf[storageModule]()}, deps)

	deps, err = p.Dependencies(TypeOf[cacheModule]())
	require.NoError(t, err)
	assert.Equal(t, []ModuleType{TypeOf[storageModule]()}, deps)

	deps, err = p.Dependencies(TypeOf[storageModule]())
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestTypeMetadataProvider_UnknownAndInvalid(t *testing.T) {
	p := NewTypeMetadataProvider(nil)

	_, err := p.Dependencies(NamedType("example.com/x.Unknown"))
	assert.ErrorIs(t, err, ErrUnknownModuleType)

	_, err = p.Dependencies(TypeOf[Observer]())
	assert.ErrorIs(t, err, ErrInvalidModuleType)

	deps, err := p.Dependencies(TypeOf[panickyDeclarer]())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Nil(t, deps)
}

func TestTypeMetadataProvider_UsesRegistry(t *testing.T) {
	reg := NewTypeRegistry()
	Register[cacheModule](reg)
	p := NewTypeMetadataProvider(reg)

	deps, err := p.Dependencies(NamedType(TypeOf[cacheModule]().String()))
	require.NoError(t, err)
	assert.Equal(t, []string{TypeOf[storageModule]().String()}, names(deps))
}

func TestTypeMetadataProvider_Packages(t *testing.T) {
	p := NewTypeMetadataProvider(nil)
	assert.Equal(t,
		[]string{"github.com/GoCodeAlone/modgraph", "example.com/api/handlers"},
		p.Packages(TypeOf[apiModule]()))
	assert.Equal(t, []string{"github.com/GoCodeAlone/modgraph"}, p.Packages(TypeOf[storageModule]()))
	assert.Nil(t, p.Packages(NamedType("x.Y")))
}

func TestDeclaredMetadataProvider(t *testing.T) {
	p := NewDeclaredMetadataProvider().
		Declare(NamedType("B"), NamedType("C")).
		Declare(NamedType("A"), NamedType("B")).
		Declare(NamedType("C")).
		DeclarePackages(NamedType("A"), "example.com/a")

	deps, err := p.Dependencies(NamedType("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(deps))

	deps, err = p.Dependencies(NamedType("C"))
	require.NoError(t, err)
	assert.Empty(t, deps)

	_, err = p.Dependencies(NamedType("Z"))
	assert.ErrorIs(t, err, ErrUnknownModuleType)

	assert.Equal(t, []string{"example.com/a"}, p.Packages(NamedType("A")))
	assert.Equal(t, []string{"A", "B", "C"}, names(p.Types()))
}

func TestMetadataProviders_Chain(t *testing.T) {
	declared := NewDeclaredMetadataProvider().Declare(NamedType("A"), NamedType("B"))
	broken := MetadataProviderFunc(func(t ModuleType) ([]ModuleType, error) {
		if t.String() == "Broken" {
			return nil, errors.New("metadata store offline")
		}
		return nil, ErrUnknownModuleType
	})
	chain := MetadataProviders(broken, declared, NewTypeMetadataProvider(nil))

	deps, err := chain.Dependencies(NamedType("A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, names(deps))

	deps, err = chain.Dependencies(TypeOf[cacheModule]())
	require.NoError(t, err)
	assert.Len(t, deps, 1)

	_, err = chain.Dependencies(NamedType("Broken"))
	assert.EqualError(t, err, "metadata store offline")

	_, err = chain.Dependencies(NamedType("Nobody"))
	assert.ErrorIs(t, err, ErrUnknownModuleType)

	pp, ok := chain.(PackageProvider)
	require.True(t, ok)
	assert.Equal(t, []string{"github.com/GoCodeAlone/modgraph"}, pp.Packages(TypeOf[cacheModule]()))
}
