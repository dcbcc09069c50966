// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	errExpectedPointerToStruct = errors.New("expected a pointer to a struct")
	errUnsupportedSliceType    = errors.New("unsupported slice type")
	errUnsupportedFieldType    = errors.New("unsupported field type")
)

// readEnv overlays environment variables onto the struct pointed to by dst,
// descending into untagged nested structs.
//
// The env tag holds one or more variable names separated by "|", checked in
// order, optionally followed by ",overwrite". Without overwrite, a field that
// already holds a non-zero value is left alone.
func readEnv(dst any) error {
	ptr := reflect.ValueOf(dst)
	if ptr.Kind() != reflect.Pointer || ptr.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", errExpectedPointerToStruct, dst)
	}

	v := ptr.Elem()

	for i := range v.NumField() {
		field, meta := v.Field(i), v.Type().Field(i)

		tag, tagged := meta.Tag.Lookup("env")
		if !tagged {
			if field.Kind() == reflect.Struct && meta.IsExported() {
				if err := readEnv(field.Addr().Interface()); err != nil {
					return err
				}
			}

			continue
		}

		names, opts, _ := strings.Cut(tag, ",")
		overwrite := slices.Contains(strings.Split(opts, ","), "overwrite")

		name, value, found := lookupEnvAny(strings.Split(names, "|"))
		if !found || !field.CanSet() || (!overwrite && !field.IsZero()) {
			continue
		}

		if err := setFieldValue(field, meta, name, value); err != nil {
			return err
		}
	}

	return nil
}

// lookupEnvAny returns the first set environment variable among names.
func lookupEnvAny(names []string) (string, string, bool) {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			return name, value, true
		}
	}

	return "", "", false
}

// setFieldValue parses envValue into field according to the field's kind.
func setFieldValue(field reflect.Value, fieldType reflect.StructField, envVarName, envValue string) error {
	var err error

	switch kind := field.Kind(); {
	case kind == reflect.String:
		field.SetString(envValue)
	case field.Type() == reflect.TypeFor[time.Duration]():
		var d time.Duration
		if d, err = time.ParseDuration(envValue); err == nil {
			field.SetInt(int64(d))
		}
	case field.CanInt():
		var n int64
		if n, err = strconv.ParseInt(envValue, 10, 64); err == nil {
			field.SetInt(n)
		}
	case field.CanFloat():
		var f float64
		if f, err = strconv.ParseFloat(envValue, 64); err == nil {
			field.SetFloat(f)
		}
	case kind == reflect.Bool:
		var b bool
		if b, err = strconv.ParseBool(envValue); err == nil {
			field.SetBool(b)
		}
	case kind == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(envValue)))
	case kind == reflect.Slice:
		return fmt.Errorf("%w for field %s", errUnsupportedSliceType, fieldType.Name)
	default:
		return fmt.Errorf("%w for field %s: %s", errUnsupportedFieldType, fieldType.Name, kind)
	}

	if err != nil {
		return fmt.Errorf("%s=%q is not a valid %s for %s: %w",
			envVarName, envValue, field.Type(), fieldType.Name, err)
	}

	return nil
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(value string) []string {
	out := []string{}

	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// useDotEnv loads the first .env file found in the working directory or
// next to the binary. Variables that are already set win over the file.
func useDotEnv() error {
	var dirs []string

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	} else {
		log.Warn().Err(err).Msg("Could not get current working directory")
	}

	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		loaded, err := tryLoadDotEnv(filepath.Join(dir, ".env"))
		if loaded || err != nil {
			return err
		}
	}

	log.Debug().Msg("No .env file found")

	return nil
}

// tryLoadDotEnv applies KEY=VALUE lines from envPath and reports whether the
// file existed. Unreadable files are logged and treated as missing.
func tryLoadDotEnv(envPath string) (bool, error) {
	data, err := os.ReadFile(envPath) // #nosec G304 -- fixed file name in known directories
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		log.Warn().Err(err).Str("path", envPath).Msg("Skipping unreadable .env file")

		return false, nil
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			log.Warn().Str("path", envPath).Int("line", i+1).Msg("Ignoring malformed .env line")

			continue
		}

		key = strings.TrimSpace(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, unquote(strings.TrimSpace(value))); err != nil {
			return true, fmt.Errorf("set %s from %s: %w", key, envPath, err)
		}
	}

	log.Info().Str("path", envPath).Msg("Loaded .env file")

	return true, nil
}

// unquote strips one pair of matching single or double quotes.
func unquote(value string) string {
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		return value[1 : len(value)-1]
	}

	return value
}
