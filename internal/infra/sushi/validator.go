package sushi

import (
	"bytes"
	"embed"
	"fmt"
	"reflect"
	"strings"

	"counter_harvester/internal/domain/catalog"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxViolations caps how many item problems are collected per report.
const maxViolations = 25

var (
	ErrMissingHeader      = errors.New("report header missing or not an object")
	ErrUnsupportedRelease = errors.New("unsupported COUNTER release")
	ErrNoReportItems      = errors.New("report contains no items")
)

// ValidationError carries the conformance violations of a rejected report.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "report failed validation: " + e.Violations[0]
	}
	return fmt.Sprintf("report failed validation: %s (and %d more)", e.Violations[0], len(e.Violations)-1)
}

// ErrorCode maps a Validate error to its catalog code.
func ErrorCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNoReportItems):
		return catalog.CodeNoUsageAvailable
	case errors.Is(err, ErrUnsupportedRelease):
		return catalog.CodeBadRelease
	case errors.Is(err, ErrMissingHeader):
		return catalog.CodeMissingHeader
	}
	return catalog.CodeValidationFailed
}

type reportHeader struct {
	ReportName      string `json:"Report_Name" validate:"required"`
	ReportID        string `json:"Report_ID" validate:"required,oneof=PR PR_P1 DR DR_D1 DR_D2 TR TR_B1 TR_B2 TR_B3 TR_J1 TR_J2 TR_J3 TR_J4 IR IR_A1 IR_M1"`
	Release         string `json:"Release" validate:"required,oneof=5 5.1"`
	InstitutionName string `json:"Institution_Name" validate:"required"`
	Created         string `json:"Created" validate:"required"`
	CreatedBy       string `json:"Created_By" validate:"required"`
}

// Validator checks the structure of a decoded report.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &Validator{validate: v}
}

// Validate returns nil for an acceptable report, ErrMissingHeader,
// ErrUnsupportedRelease, ErrNoReportItems, or a *ValidationError.
func (v *Validator) Validate(payload map[string]any) error {
	raw, ok := payload["Report_Header"].(map[string]any)
	if !ok {
		return ErrMissingHeader
	}
	header := reportHeader{
		ReportName:      stringField(raw, "Report_Name"),
		ReportID:        strings.ToUpper(stringField(raw, "Report_ID")),
		Release:         stringField(raw, "Release"),
		InstitutionName: stringField(raw, "Institution_Name"),
		Created:         stringField(raw, "Created"),
		CreatedBy:       stringField(raw, "Created_By"),
	}
	if header.Release != Release5 && header.Release != Release51 {
		return errors.Wrapf(ErrUnsupportedRelease, "release %q", header.Release)
	}

	items, present := payload["Report_Items"]
	if !present || items == nil {
		return ErrNoReportItems
	}
	list, ok := items.([]any)
	if !ok {
		return &ValidationError{Violations: []string{"Report_Items is not an array"}}
	}
	if len(list) == 0 {
		return ErrNoReportItems
	}

	var violations []string
	if err := v.validate.Struct(header); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrap(err, "error validating report header")
		}
		for _, fe := range fieldErrs {
			violations = append(violations, fmt.Sprintf("Report_Header.%s failed '%s'", fe.Field(), fe.Tag()))
		}
	}
	violations = append(violations, itemViolations(payload, header.ReportID, header.Release)...)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

//go:embed schemas/*.json
var schemaFiles embed.FS

const schemaBase = "https://counter-harvester.invalid/schemas/"

var schemaFileByRelease = map[string]string{
	Release5:  "counter_r5.json",
	Release51: "counter_r51.json",
}

var reportFamilies = []string{"platform", "database", "title", "item", "generic"}

// itemSchemas holds the compiled Report_Items schema per release and
// report family.
var itemSchemas = mustCompileItemSchemas()

var violationPrinter = message.NewPrinter(language.English)

func mustCompileItemSchemas() map[string]map[string]*jsonschema.Schema {
	c := jsonschema.NewCompiler()
	for _, name := range schemaFileByRelease {
		b, err := schemaFiles.ReadFile("schemas/" + name)
		if err != nil {
			panic(errors.Wrapf(err, "failed to read schema %s", name))
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			panic(errors.Wrapf(err, "failed to parse schema %s", name))
		}
		if err := c.AddResource(schemaBase+name, doc); err != nil {
			panic(errors.Wrapf(err, "failed to add schema %s", name))
		}
	}

	out := make(map[string]map[string]*jsonschema.Schema, len(schemaFileByRelease))
	for release, name := range schemaFileByRelease {
		out[release] = make(map[string]*jsonschema.Schema, len(reportFamilies))
		for _, family := range reportFamilies {
			out[release][family] = c.MustCompile(schemaBase + name + "#/$defs/" + family + "_report")
		}
	}
	return out
}

// reportFamily returns the schema family whose items carry the field that
// names the usage subject: Platform, Database, Title or Item.
func reportFamily(reportID string) string {
	switch {
	case strings.HasPrefix(reportID, "PR"):
		return "platform"
	case strings.HasPrefix(reportID, "DR"):
		return "database"
	case strings.HasPrefix(reportID, "TR"):
		return "title"
	case strings.HasPrefix(reportID, "IR"):
		return "item"
	}
	return "generic"
}

// itemViolations checks Report_Items against the COUNTER schema for the
// release. Each violation is the JSON pointer of the offending value and
// what is wrong with it.
func itemViolations(payload map[string]any, reportID, release string) []string {
	err := itemSchemas[release][reportFamily(reportID)].Validate(payload)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	var out []string
	collectViolations(verr, nil, &out)
	return out
}

// collectViolations flattens the error tree into its leaves. A
// propertyNames failure is reported against the object holding the name,
// since its causes carry no location inside the document.
func collectViolations(e *jsonschema.ValidationError, parent []string, out *[]string) {
	if len(*out) >= maxViolations {
		return
	}
	loc := e.InstanceLocation
	if len(loc) == 0 {
		loc = parent
	}
	_, badName := e.ErrorKind.(*kind.PropertyNames)
	if badName || len(e.Causes) == 0 {
		*out = append(*out, fmt.Sprintf("/%s: %s", strings.Join(loc, "/"), e.ErrorKind.LocalizedString(violationPrinter)))
		return
	}
	for _, c := range e.Causes {
		collectViolations(c, loc, out)
	}
}
