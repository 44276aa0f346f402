package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML file.
const FileEnv = "CONFIG_FILE"

var durationType = reflect.TypeOf(time.Duration(0))

// Validator is implemented by service configs that need checks after loading.
type Validator interface {
	Validate() error
}

// LoadConfig fills target (a pointer to struct) from the YAML file named by
// CONFIG_FILE, if set, and then from environment variables. Fields map to
// env keys through `env:"KEY"` tags or, without a tag, PARENT_FIELD names.
// Values already present in target act as defaults.
func LoadConfig(target any) error {
	if target == nil {
		return errors.New("config: target is nil")
	}

	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be pointer to struct")
	}

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if err := loadFile(path, target); err != nil {
			return err
		}
	}

	if err := populateFromEnv(val.Elem(), ""); err != nil {
		return err
	}

	if v, ok := target.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func loadFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: decode yaml %s: %w", path, err)
	}
	return nil
}

func populateFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		meta := t.Field(i)
		if !field.CanSet() {
			continue
		}

		if meta.Anonymous && field.Kind() == reflect.Struct {
			if err := populateFromEnv(field, prefix); err != nil {
				return err
			}
			continue
		}

		tag := meta.Tag.Get("env")
		if tag == "-" {
			continue
		}
		key := envKey(prefix, meta.Name)
		if tag != "" {
			key = envKey("", tag)
		}

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := populateFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := assign(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("config: parse %s: %w", key, err)
		}
	}
	return nil
}

func envKey(prefix, name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

func assign(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
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
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := splitList(value)
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// parseDuration accepts Go duration syntax and bare integers as seconds.
func parseDuration(value string) (time.Duration, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(value)
}

func splitList(value string) []string {
	out := []string{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
