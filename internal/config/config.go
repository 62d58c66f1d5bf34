// Package config fills a flat options struct from a TOML file and
// PICAMBENCH_* environment variables without overriding flags set on the
// command line.
//
// Fields opt in through struct tags:
//
//	FPS int `name:"fps" toml:"pipeline.fps" env:"FPS"`
//
// The toml tag is a dotted path into the file, the env tag is appended to
// EnvPrefix, and the name tag (or the kebab-cased field name) identifies
// the CLI flag whose explicit use wins over both.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "PICAMBENCH_"

// ErrInvalidValue is wrapped when a file or environment value does not fit
// the field it targets.
var ErrInvalidValue = errors.New("invalid config value")

// LoadConfig applies the file named by the Config field and then the
// environment to opts, a pointer to a struct. Fields whose flag was set on
// cmd are left alone. A missing file is not an error; a malformed one, or
// a value of the wrong type, is.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: options must be a pointer to a struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	path := configPath(v)
	file, err := readFile(path)
	if err != nil {
		return err
	}
	fromCLI := changedFlags(cmd)

	for i := range t.NumField() {
		sf := t.Field(i)
		if fromCLI[flagName(sf)] {
			continue
		}
		field := v.Field(i)

		if key := sf.Tag.Get("toml"); key != "" && file != nil {
			if value, ok := lookup(file, key); ok {
				if err := setFieldValue(field, value); err != nil {
					return fmt.Errorf("%s: %s: %w", path, key, err)
				}
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if value := os.Getenv(EnvPrefix + key); value != "" {
				if err := setFieldValueFromString(field, value); err != nil {
					return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}
	return nil
}

// configPath returns the Config field, the only field read before loading.
func configPath(v reflect.Value) string {
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return ""
}

func readFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return doc, nil
}

// changedFlags collects flags given explicitly on the command line, local
// or persistent.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	mark := func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	}
	cmd.Flags().VisitAll(mark)
	cmd.PersistentFlags().VisitAll(mark)
	return changed
}

// flagName returns the CLI flag for a field: its name tag when present,
// otherwise the kebab-cased field name.
func flagName(field reflect.StructField) string {
	if name := field.Tag.Get("name"); name != "" {
		return name
	}
	return fieldNameToFlag(field.Name)
}

// fieldNameToFlag kebab-cases a field name, keeping acronyms together:
// "LoggingLevel" -> "logging-level", "FPS" -> "fps", "HTTPListen" ->
// "http-listen".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookup walks a dotted path through nested tables.
func lookup(doc map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := doc[part].(map[string]any)
		if !ok {
			return nil, false
		}
		doc = next
	}
	value, ok := doc[parts[len(parts)-1]]
	return value, ok
}

// setFieldValue assigns a decoded TOML value. go-toml decodes integers as
// int64 and floats as float64.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return typeError(value, "string")
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return typeError(value, "boolean")
		}
		field.SetBool(b)
	case reflect.Int:
		i, ok := value.(int64)
		if !ok {
			return typeError(value, "integer")
		}
		field.SetInt(i)
	case reflect.Float64:
		switch f := value.(type) {
		case float64:
			field.SetFloat(f)
		case int64:
			field.SetFloat(float64(f))
		default:
			return typeError(value, "number")
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return typeError(value, "array of strings")
		}
		out := make([]string, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				return typeError(item, "string")
			}
			out[i] = s
		}
		field.Set(reflect.ValueOf(out))
	}
	return nil
}

// setFieldValueFromString parses an environment value into field. Slices
// are comma separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
		}
		field.SetInt(i)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

func typeError(value any, want string) error {
	return fmt.Errorf("%w: %v (%T) is not a %s", ErrInvalidValue, value, value, want)
}
