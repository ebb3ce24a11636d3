package record

// FieldName names one structured crash attribute.
type FieldName string

const (
	SystemTime           FieldName = "SystemTime"
	UserID               FieldName = "UserID"
	AppName              FieldName = "AppName"
	AppVersion           FieldName = "AppVersion"
	AppTimeStamp         FieldName = "AppTimeStamp"
	ModuleName           FieldName = "ModuleName"
	ModuleVersion        FieldName = "ModuleVersion"
	ModuleTimeStamp      FieldName = "ModuleTimeStamp"
	ExceptionCode        FieldName = "ExceptionCode"
	FaultingOffset       FieldName = "FaultingOffset"
	ProcessID            FieldName = "ProcessId"
	ProcessCreationTime  FieldName = "ProcessCreationTime"
	AppPath              FieldName = "AppPath"
	ModulePath           FieldName = "ModulePath"
	IntegratorReportID   FieldName = "IntegratorReportId"
	PackageFullName      FieldName = "PackageFullName"
	PackageRelativeAppID FieldName = "PackageRelativeAppId"
)

// FieldOrder is the rendering order of all known fields.
var FieldOrder = []FieldName{
	SystemTime,
	UserID,
	AppName,
	AppVersion,
	AppTimeStamp,
	ModuleName,
	ModuleVersion,
	ModuleTimeStamp,
	ExceptionCode,
	FaultingOffset,
	ProcessID,
	ProcessCreationTime,
	AppPath,
	ModulePath,
	IntegratorReportID,
	PackageFullName,
	PackageRelativeAppID,
}

// TerseFields are the only fields shown on space-constrained channels.
var TerseFields = []FieldName{AppName, ModuleName, ExceptionCode, IntegratorReportID}

var fieldIndex = func() map[FieldName]int {
	m := make(map[FieldName]int, len(FieldOrder))
	for i, n := range FieldOrder {
		m[n] = i
	}
	return m
}()

// IsTerse reports whether name belongs to the terse subset.
func IsTerse(name FieldName) bool {
	for _, n := range TerseFields {
		if n == name {
			return true
		}
	}
	return false
}

// Field is one present attribute.
type Field struct {
	Name  FieldName
	Value string
}

// Fields is the ordered set of attributes present on an event. A field that
// the event did not carry is absent, which is distinct from an empty value.
type Fields struct {
	present []bool
	values  []string
}

// Get returns the value of name and whether it is present.
func (f Fields) Get(name FieldName) (string, bool) {
	i, ok := fieldIndex[name]
	if !ok || f.present == nil || !f.present[i] {
		return "", false
	}
	return f.values[i], true
}

// Present returns the present fields in FieldOrder.
func (f Fields) Present() []Field {
	var out []Field
	for i, name := range FieldOrder {
		if f.present != nil && f.present[i] {
			out = append(out, Field{Name: name, Value: f.values[i]})
		}
	}
	return out
}

type fieldsBuilder struct {
	present []bool
	values  []string
}

func newFieldsBuilder() *fieldsBuilder {
	return &fieldsBuilder{
		present: make([]bool, len(FieldOrder)),
		values:  make([]string, len(FieldOrder)),
	}
}

// set records name; a later value for the same name replaces the earlier one.
func (b *fieldsBuilder) set(name FieldName, value string) {
	i := fieldIndex[name]
	b.present[i] = true
	b.values[i] = value
}

func (b *fieldsBuilder) build() Fields {
	return Fields{present: b.present, values: b.values}
}
