package vartype

// simpleType is a descriptor with no construction options.
type simpleType struct {
	tag string
}

func (t simpleType) Tag() string { return t.tag }

func (t simpleType) ValidateOptions(options map[string]any) error {
	var none struct{}
	return decodeStrict(options, &none)
}

// untypedType is the fallback descriptor for unrecognized tags. It accepts
// any options, since it cannot know what the writer meant by them.
type untypedType struct{}

func (untypedType) Tag() string                          { return "unknown" }
func (untypedType) ValidateOptions(map[string]any) error { return nil }

var defaultType Type = untypedType{}

// datetimeType accepts a strftime-style format option.
type datetimeType struct {
	tag string
}

// DatetimeOptions are the construction options of datetime-like variables.
type DatetimeOptions struct {
	Format string `mapstructure:"format"`
}

func (t datetimeType) Tag() string { return t.tag }

func (t datetimeType) ValidateOptions(options map[string]any) error {
	var opts DatetimeOptions
	return decodeStrict(options, &opts)
}

// ordinalType accepts an explicit value ordering.
type ordinalType struct{}

// OrdinalOptions are the construction options of ordinal variables.
type OrdinalOptions struct {
	Order []any `mapstructure:"order"`
}

func (ordinalType) Tag() string { return "ordinal" }

func (ordinalType) ValidateOptions(options map[string]any) error {
	var opts OrdinalOptions
	return decodeStrict(options, &opts)
}

// categoricalType accepts an optional category whitelist.
type categoricalType struct{}

// CategoricalOptions are the construction options of categorical variables.
type CategoricalOptions struct {
	Categories []any `mapstructure:"categories"`
}

func (categoricalType) Tag() string { return "categorical" }

func (categoricalType) ValidateOptions(options map[string]any) error {
	var opts CategoricalOptions
	return decodeStrict(options, &opts)
}

func init() {
	Register(defaultType)
	Register(simpleType{tag: "index"})
	Register(simpleType{tag: "id"})
	Register(simpleType{tag: "numeric"})
	Register(simpleType{tag: "boolean"})
	Register(simpleType{tag: "text"})
	Register(simpleType{tag: "latlong"})
	Register(simpleType{tag: "timedelta"})
	Register(categoricalType{})
	Register(ordinalType{})
	Register(datetimeType{tag: "datetime"})
	Register(datetimeType{tag: "time_index"})
}
