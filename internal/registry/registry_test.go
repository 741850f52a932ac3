package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modelbind/internal/registry"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

type hero struct {
	HP    uint32   `model:"Health"`
	Buffs []string `model:"Buffs"`
	Title string   `model:"Title"`
}

const heroManifest = `
model "test-Hero" {
  description = "A test model."

  field "Health" { type = uint }
  field "Buffs"  { type = list(string) }

  field "Title" {
    type    = string
    default = "untitled"
  }
}
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	return dir
}

func TestRegister(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))

	m, ok := r.Model("test-Hero")
	require.True(t, ok)
	require.Equal(t, "test-Hero", m.Name)
	require.Equal(t, "registry_test.hero", m.Type.String())
	require.IsType(t, &shape.Object{}, m.Shape)

	require.ErrorContains(t, r.Register("test-Hero", &hero{}), "already registered")
	require.ErrorContains(t, r.Register("test-Bad", hero{}), "struct pointer")
	require.Equal(t, []string{"test-Hero"}, r.Names())
}

func TestRegister_AfterSeal(t *testing.T) {
	r := registry.New()
	r.Seal()
	require.ErrorContains(t, r.Register("test-Hero", &hero{}), "after seal")
}

func TestLoadManifests(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", heroManifest)

	r := registry.New()
	require.NoError(t, r.LoadManifests(context.Background(), dir))

	decl, ok := r.Declaration("test-Hero")
	require.True(t, ok)
	require.Equal(t, "A test model.", decl.Description)
	require.Len(t, decl.Fields, 3)

	require.Equal(t, "Health", decl.Fields[0].Key)
	require.True(t, decl.Fields[0].Shape.Equal(shape.Prim(shape.Uint)))
	require.Nil(t, decl.Fields[0].Default)

	require.True(t, decl.Fields[1].Shape.Equal(shape.ArrayOf(shape.Prim(shape.Str))))

	require.Equal(t, "Title", decl.Fields[2].Key)
	require.True(t, decl.Fields[2].Default.Equal(value.Str("untitled")))
}

func TestLoadManifests_EmptyDirIsFine(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.LoadManifests(context.Background(), t.TempDir()))
}

func TestLoadManifests_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	decl := `
model "test-Hero" {
  field "Health" { type = uint }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(decl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(decl), 0o644))

	r := registry.New()
	err := r.LoadManifests(context.Background(), dir)
	require.ErrorContains(t, err, "declared in both")
}

func TestLoadManifests_BadType(t *testing.T) {
	dir := writeManifest(t, "bad.hcl", `
model "test-Hero" {
  field "Health" { type = list(any) }
}
`)

	r := registry.New()
	err := r.LoadManifests(context.Background(), dir)
	require.Error(t, err)
	require.ErrorContains(t, err, `field "Health"`)
}

func TestValidate(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", heroManifest)

	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	require.NoError(t, r.Validate(context.Background()))
}

func TestValidate_UnregisteredModel(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", heroManifest)

	r := registry.New()
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	err := r.Validate(context.Background())
	require.ErrorContains(t, err, "no type is registered")
}

func TestValidate_UnknownKey(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", `
model "test-Hero" {
  field "Mana" { type = uint }
}
`)

	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	err := r.Validate(context.Background())
	require.ErrorContains(t, err, `declares key "Mana"`)
}

func TestValidate_ShapeDisagreement(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", `
model "test-Hero" {
  field "Health" { type = string }
}
`)

	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	err := r.Validate(context.Background())
	require.ErrorContains(t, err, "declared as string")
}

func TestValidate_AnyIsUnchecked(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", `
model "test-Hero" {
  field "Health" { type = any }
}
`)

	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	require.NoError(t, r.Validate(context.Background()))
}

func TestDefaults(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", heroManifest)

	r := registry.New()
	require.NoError(t, r.LoadManifests(context.Background(), dir))

	defaults := r.Defaults("test-Hero")
	require.Len(t, defaults, 1)
	require.True(t, defaults["Title"].Equal(value.Str("untitled")))

	require.Nil(t, r.Defaults("test-Unknown"))
}

func TestNewBinding(t *testing.T) {
	dir := writeManifest(t, "hero.hcl", heroManifest)

	r := registry.New()
	require.NoError(t, r.Register("test-Hero", &hero{}))
	require.NoError(t, r.LoadManifests(context.Background(), dir))
	require.NoError(t, r.Validate(context.Background()))
	r.Seal()

	b, err := r.NewBinding("test-Hero")
	require.NoError(t, err)

	// Title is covered by a manifest default, so the update may omit it.
	require.NoError(t, b.Bind(context.Background(), value.Rec{
		"Health": value.Uint(10),
		"Buffs":  value.Seq{value.Str("haste")},
	}))
	got := b.Instance().(*hero)
	require.Equal(t, &hero{HP: 10, Buffs: []string{"haste"}, Title: "untitled"}, got)

	_, err = r.NewBinding("test-Unknown")
	require.ErrorContains(t, err, "not registered")
}
