package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidConfig is returned when the target is not a pointer to a struct embedding EnvConfig.
	ErrInvalidConfig = errors.New("config must be a pointer to a struct embedding EnvConfig")

	// ErrVarNotSet is returned when a tagged field has neither an env var nor a default.
	ErrVarNotSet = errors.New("env var not set")

	// ErrUnsupportedVarType is returned for field kinds the parser cannot fill.
	ErrUnsupportedVarType = errors.New("unsupported env var type")
)

//nolint:gochecknoglobals
var durationType = reflect.TypeOf(time.Duration(0))

// EnvConfig marks a struct as the root of an env-driven configuration tree.
type EnvConfig struct {
	namespace string
}

// Namespace returns the prefix the configuration was parsed with.
func (c EnvConfig) Namespace() string {
	return c.namespace
}

func rootOf(cfg any) (*EnvConfig, error) {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, ErrInvalidConfig
	}

	v = v.Elem()

	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		if field.Anonymous && field.Type == reflect.TypeOf(EnvConfig{}) {
			//nolint:forcetypeassert
			return v.Field(i).Addr().Interface().(*EnvConfig), nil
		}
	}

	return nil, ErrInvalidConfig
}

// Parse fills cfg from the environment.
//
// Fields are bound with `env:"NAME"` and may carry `default:"value"`. Nested
// structs add `envPrefix:"PREFIX_"` to their children's names. Every variable
// is looked up under the namespace first and then under each shorter
// underscore-separated prefix of it, so BLOG_STORE_DB_DSN falls back to
// BLOG_DB_DSN and then DB_DSN.
//
// Supported kinds are string, bool, the signed integers and time.Duration.
// Durations accept Go duration syntax ("30s") or a bare number of seconds.
func Parse(_ context.Context, cfg any, namespace string) error {
	root, err := rootOf(cfg)
	if err != nil {
		return fmt.Errorf("get env config: %w", err)
	}

	root.namespace = namespace

	return parseStruct(candidates(namespace), "", reflect.ValueOf(cfg).Elem())
}

func candidates(namespace string) []string {
	if namespace == "" {
		return []string{""}
	}

	parts := strings.Split(namespace, "_")
	out := make([]string, 0, len(parts)+1)

	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "_")+"_")
	}

	return append(out, "")
}

func parseStruct(namespaces []string, prefix string, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)

		if field.Type.Kind() == reflect.Struct && field.Type != durationType {
			if field.Type == reflect.TypeOf(EnvConfig{}) {
				continue
			}

			if err := parseStruct(namespaces, prefix+field.Tag.Get("envPrefix"), value); err != nil {
				return err
			}

			continue
		}

		if err := parseField(namespaces, prefix, field, value); err != nil {
			return fmt.Errorf("parse field: %w", err)
		}
	}

	return nil
}

func lookup(namespaces []string, name string) (string, bool) {
	for _, ns := range namespaces {
		if value, ok := os.LookupEnv(ns + name); ok {
			return value, true
		}
	}

	return "", false
}

func parseField(namespaces []string, prefix string, field reflect.StructField, value reflect.Value) error {
	tag := field.Tag.Get("env")
	if tag == "" {
		return nil
	}

	raw, ok := lookup(namespaces, prefix+tag)
	if !ok {
		raw, ok = field.Tag.Lookup("default")
		if !ok {
			return fmt.Errorf("%w: %s", ErrVarNotSet, prefix+tag)
		}
	}

	if field.Type == durationType {
		d, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", tag, err)
		}

		value.SetInt(int64(d))

		return nil
	}

	//nolint:exhaustive
	switch field.Type.Kind() {
	case reflect.String:
		value.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type.Bits())
		if err != nil {
			return fmt.Errorf("invalid type for %s: %w", tag, err)
		}

		value.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid type for %s: %w", tag, err)
		}

		value.SetBool(b)
	default:
		return fmt.Errorf("%w: %s (%v)", ErrUnsupportedVarType, tag, field.Type.Kind())
	}

	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	return time.ParseDuration(raw) //nolint:wrapcheck
}
