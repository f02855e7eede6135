package ritual

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config map[string]*cfgVal

// NewConfig creates a new configuration object primed with all the
// default values expected by the semantic passes, the optimizer and
// the parser.
func NewConfig() *Config {
	m := make(Config)
	// report locals and globals that are never read
	m.SetBool("semantic.check_unused", true)
	// run the optimizer after the semantic passes
	m.SetBool("optimizer.enabled", true)
	// canonicalize character classes and flatten nested nodes
	m.SetBool("optimizer.simplify", true)
	// compute first sets and mark disjoint choices
	m.SetBool("optimizer.first_sets", true)
	// give up on the first set fixpoint after this many rounds
	m.SetInt("optimizer.max_iterations", 64)
	// log every rule entered and left while parsing
	m.SetBool("vm.trace", false)
	// fail matches that don't consume the whole input
	m.SetBool("vm.must_consume_all", true)
	// columns a tab expands to when reporting locations
	m.SetInt("diagnostics.tab_size", DefaultTabSize)
	// color the command line output: auto, always or never
	m.SetString("diagnostics.color", "auto")
	return &m
}

// LoadConfigFile reads a TOML file on top of the default settings.
// Tables map to the dotted prefix of keys, so
//
//	[optimizer]
//	max_iterations = 10
//
// sets `optimizer.max_iterations`.  Unknown keys and values of the
// wrong type are errors.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := NewConfig()
	if err := cfg.Load(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load overlays the TOML document read from `r` on the configuration
func (c *Config) Load(r io.Reader) error {
	doc := map[string]any{}
	if err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}
	return c.overlay("", doc)
}

func (c *Config) overlay(prefix string, doc map[string]any) error {
	for k, v := range doc {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			if err := c.overlay(path, table); err != nil {
				return err
			}
			continue
		}
		current, ok := (*c)[path]
		if !ok {
			return fmt.Errorf("unknown setting `%s`", path)
		}
		switch value := v.(type) {
		case bool:
			if current.typ != cfgValType_Bool {
				return fmt.Errorf("setting `%s` expects %s, got bool", path, current.typ)
			}
			c.SetBool(path, value)
		case int64:
			if current.typ != cfgValType_Int {
				return fmt.Errorf("setting `%s` expects %s, got int", path, current.typ)
			}
			c.SetInt(path, int(value))
		case string:
			if current.typ != cfgValType_String {
				return fmt.Errorf("setting `%s` expects %s, got string", path, current.typ)
			}
			c.SetString(path, value)
		default:
			return fmt.Errorf("setting `%s` has unsupported value %v", path, v)
		}
	}
	return nil
}

// Debug writes every setting, sorted by name, to `w`
func (c *Config) Debug(w io.Writer) {
	fmt.Fprintln(w, "Configuration")

	keys := make([]string, 0, len(*c))
	width := 0
	for k := range *c {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s%s : %s\n", k, strings.Repeat(" ", width-len(k)), (*c)[k])
	}
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

// assignType is mostly for preventing programming errors
func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("Can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("Can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (v *cfgVal) String() string {
	switch v.typ {
	case cfgValType_Bool:
		return fmt.Sprintf("%t (bool)", v.asBool)
	case cfgValType_Int:
		return fmt.Sprintf("%d (int)", v.asInt)
	case cfgValType_String:
		return fmt.Sprintf("%s (string)", v.asString)
	case cfgValType_Undefined:
		return "(undefined)"
	default:
		panic(fmt.Sprintf("unknown cfgVal type: %v", v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("Bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("Int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("String setting `%s` does not exist", path))
}
