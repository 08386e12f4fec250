package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Override records one environment variable that replaced a configured value.
type Override struct {
	// Env is the variable name, for example JBX_PORT.
	Env string
	// Field is the YAML path of the overridden setting, for example server.port.
	Field string
}

// LoadFromEnv overrides fields of cfg from the variables named by their `env` tags
// and returns the overrides in field order. Unset or empty variables are ignored.
func LoadFromEnv(cfg any) ([]Override, error) {
	w := envWalker{lookup: os.LookupEnv}
	if err := w.walk(reflect.ValueOf(cfg), ""); err != nil {
		return nil, err
	}
	return w.applied, nil
}

type envWalker struct {
	lookup  func(string) (string, bool)
	applied []Override
}

func (w *envWalker) walk(v reflect.Value, prefix string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		path := fieldPath(prefix, t.Field(i))

		if field.Kind() == reflect.Struct {
			if err := w.walk(field, path); err != nil {
				return err
			}
			continue
		}

		env := t.Field(i).Tag.Get("env")
		if env == "" {
			continue
		}
		value, ok := w.lookup(env)
		if !ok || value == "" {
			continue
		}

		if err := setField(field, value); err != nil {
			return fmt.Errorf("%s: invalid value %q for %s: %w", env, value, path, err)
		}
		w.applied = append(w.applied, Override{Env: env, Field: path})
	}
	return nil
}

// fieldPath joins the YAML name of f onto prefix, falling back to the Go name.
func fieldPath(prefix string, f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	if name == "" || name == "-" {
		name = strings.ToLower(f.Name)
	}
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

var durationType = reflect.TypeFor[time.Duration]()

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		// Comma-separated; empty items are dropped.
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}
