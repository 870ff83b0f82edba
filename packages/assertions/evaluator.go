package assertions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/apiharness/packages/capture"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response  *capture.Response
	bodyJSON  gjson.Result
	baseDir   string // Base directory for resolving schema file paths
	errorInfo *result.ErrorInfo
	decodedBy string
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithBaseDir resolves relative schema paths against dir and keeps them inside it.
func WithBaseDir(dir string) EvaluatorOption {
	return func(e *Evaluator) {
		e.baseDir = dir
	}
}

// WithErrorInfo exposes the failure of the call to the error subjects. A nil
// info means the call succeeded.
func WithErrorInfo(info *result.ErrorInfo) EvaluatorOption {
	return func(e *Evaluator) {
		e.errorInfo = info
	}
}

// WithDecodedBy exposes the strategy that produced the payload as decodedBy.
func WithDecodedBy(strategy string) EvaluatorOption {
	return func(e *Evaluator) {
		e.decodedBy = strategy
	}
}

func NewEvaluator(resp *capture.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		response: resp,
	}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(assertion Assertion) *Result {
	result := &Result{
		Subject:  assertion.Subject,
		Operator: assertion.Operator.String(),
		Expected: assertion.Expected,
	}

	actual, err := e.getActualValue(assertion.Subject)
	if err != nil {
		result.Passed = false
		result.Message = err.Error()
		return result
	}
	result.Actual = actual

	passed, msg := e.compare(actual, assertion.Operator, assertion.Expected)
	result.Passed = passed
	result.Message = msg

	// For length operator, show the computed length as the actual value
	if assertion.Operator == OpLength {
		result.Actual = computeLength(actual)
	}

	return result
}

// getActualValue resolves a subject. Besides status, header, body and
// jsonpath it knows the call envelope: hasError, decodedBy, error (the
// message) and error.message, error.status, error.codes and error.data. Any
// other subject is a body path.
func (e *Evaluator) getActualValue(subject string) (any, error) {
	switch {
	case subject == "status":
		return e.response.StatusCode, nil
	case subject == "hasError":
		return e.errorInfo != nil, nil
	case subject == "decodedBy":
		if e.decodedBy == "" {
			return nil, nil
		}
		return e.decodedBy, nil
	case subject == "error" || strings.HasPrefix(subject, "error."):
		return e.getErrorValue(strings.TrimPrefix(strings.TrimPrefix(subject, "error"), "."))
	case strings.HasPrefix(subject, "header"):
		headerName := strings.TrimSpace(strings.TrimPrefix(subject, "header"))
		if headerName == "" {
			return e.response.Headers, nil
		}
		if len(e.response.Headers.Values(headerName)) == 0 {
			return nil, nil
		}
		return e.response.Header(headerName), nil
	case strings.HasPrefix(subject, "body"):
		return e.getBodyValue(subject)
	case strings.HasPrefix(subject, "jsonpath"):
		path := strings.TrimSpace(strings.TrimPrefix(subject, "jsonpath"))
		return e.getJSONPathValue(path)
	default:
		return e.getBodyValue("body." + subject)
	}
}

func (e *Evaluator) getErrorValue(field string) (any, error) {
	if e.errorInfo == nil {
		return nil, nil
	}
	switch field {
	case "", "message":
		return e.errorInfo.Message(), nil
	case "status":
		return e.errorInfo.StatusCode(), nil
	case "codes":
		codes := e.errorInfo.ErrorCodes()
		if codes == nil {
			return nil, nil
		}
		out := make([]any, len(codes))
		for i, c := range codes {
			out[i] = c
		}
		return out, nil
	case "data":
		data := e.errorInfo.Data()
		out := make([]any, len(data))
		for i, d := range data {
			out[i] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown error field %q", field)
	}
}

func (e *Evaluator) getBodyValue(subject string) (any, error) {
	path := strings.TrimPrefix(subject, "body")
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), nil
		}
		return nil, nil
	}

	if path == "" {
		return e.bodyJSON.Value(), nil
	}

	result := e.bodyJSON.Get(capture.JSONPath(strings.TrimPrefix(path, ".")))
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (e *Evaluator) getJSONPathValue(path string) (any, error) {
	if !e.bodyJSON.Exists() {
		return nil, fmt.Errorf("response body is not JSON")
	}
	result := e.bodyJSON.Get(capture.JSONPath(path))
	if !result.Exists() {
		return nil, nil
	}
	return result.Value(), nil
}

func (e *Evaluator) compare(actual any, op Operator, expected any) (bool, string) {
	switch op {
	case OpEquals:
		return e.equals(actual, expected)
	case OpNotEquals:
		passed, _ := e.equals(actual, expected)
		if passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case OpGreaterThan:
		return e.compareNumeric(actual, expected, ">")
	case OpGreaterOrEqual:
		return e.compareNumeric(actual, expected, ">=")
	case OpLessThan:
		return e.compareNumeric(actual, expected, "<")
	case OpLessOrEqual:
		return e.compareNumeric(actual, expected, "<=")
	case OpContains:
		return textual(actual, expected, "contain", strings.Contains)
	case OpNotContains:
		passed, _ := textual(actual, expected, "contain", strings.Contains)
		if passed {
			return false, fmt.Sprintf("expected not to contain %v", expected)
		}
		return true, ""
	case OpStartsWith:
		return textual(actual, expected, "start with", strings.HasPrefix)
	case OpEndsWith:
		return textual(actual, expected, "end with", strings.HasSuffix)
	case OpMatches:
		return e.matches(actual, expected)
	case OpExists:
		return e.exists(actual)
	case OpNotExists:
		passed, _ := e.exists(actual)
		if passed {
			return false, "expected not to exist"
		}
		return true, ""
	case OpLength:
		return e.length(actual, expected)
	case OpIncludes:
		return e.includes(actual, expected)
	case OpIn:
		return e.in(actual, expected)
	case OpType:
		return e.typeCheck(actual, expected)
	case OpSchema:
		return e.schema(actual, expected)
	default:
		return false, fmt.Sprintf("unknown operator: %v", op)
	}
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func (e *Evaluator) compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)

	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	}

	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

// textual applies a string predicate to the printed forms of actual and expected.
func textual(actual, expected any, verb string, pred func(s, sub string) bool) (bool, string) {
	if pred(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to %s '%v'", actual, verb, expected)
}

func (e *Evaluator) matches(actual, expected any) (bool, string) {
	pattern := strings.TrimSuffix(strings.TrimPrefix(fmt.Sprintf("%v", expected), "/"), "/")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern: %v", err)
	}

	if re.MatchString(fmt.Sprintf("%v", actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("expected '%v' to match /%v/", actual, pattern)
}

func (e *Evaluator) exists(actual any) (bool, string) {
	if actual == nil {
		return false, "expected to exist"
	}
	return true, ""
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return -1
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, err := cast.ToIntE(expected)
	if err != nil {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) includes(actual, expected any) (bool, string) {
	items, ok := actual.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array, got %T", actual)
	}
	if e.anyEquals(items, expected) {
		return true, ""
	}
	return false, fmt.Sprintf("expected array to include %v", expected)
}

func (e *Evaluator) in(actual, expected any) (bool, string) {
	items, ok := expected.([]any)
	if !ok {
		return false, fmt.Sprintf("expected array for 'in' operator, got %T", expected)
	}
	if e.anyEquals(items, actual) {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v to be in %v", actual, expected)
}

func (e *Evaluator) anyEquals(items []any, v any) bool {
	for _, item := range items {
		if passed, _ := e.equals(item, v); passed {
			return true
		}
	}
	return false
}

func (e *Evaluator) typeCheck(actual, expected any) (bool, string) {
	expectedType := fmt.Sprintf("%v", expected)
	if expected == nil {
		expectedType = "null"
	}
	var actualType string

	switch actual.(type) {
	case nil:
		actualType = "null"
	case bool:
		actualType = "boolean"
	case float64, float32, int, int64, int32:
		actualType = "number"
	case string:
		actualType = "string"
	case []any:
		actualType = "array"
	case map[string]any:
		actualType = "object"
	default:
		actualType = reflect.TypeOf(actual).String()
	}

	if actualType == expectedType {
		return true, ""
	}
	return false, fmt.Sprintf("expected type %s, got %s", expectedType, actualType)
}

// schema validates actual against an inline JSON schema or a schema file.
func (e *Evaluator) schema(actual, expected any) (bool, string) {
	var schemaLoader gojsonschema.JSONLoader
	switch s := expected.(type) {
	case map[string]any:
		schemaLoader = gojsonschema.NewGoLoader(s)
	default:
		schemaPath := fmt.Sprintf("%v", expected)

		// Resolve schema path relative to base directory
		if !filepath.IsAbs(schemaPath) && e.baseDir != "" {
			schemaPath = filepath.Join(e.baseDir, schemaPath)
		}

		// Validate path doesn't escape base directory (prevent path traversal)
		if err := validatePathWithinBase(schemaPath, e.baseDir); err != nil {
			return false, err.Error()
		}

		schemaData, err := os.ReadFile(schemaPath)
		if err != nil {
			return false, fmt.Sprintf("failed to read schema file: %v", err)
		}
		schemaLoader = gojsonschema.NewBytesLoader(schemaData)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal actual value: %v", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(actualJSON))
	if err != nil {
		return false, fmt.Sprintf("schema validation error: %v", err)
	}

	if result.Valid() {
		return true, ""
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
}

// validatePathWithinBase checks that the resolved path stays within the base directory
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %v", err)
	}

	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %v", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}

	return nil
}

func toFloat64(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

// EvaluateAll evaluates every assertion against resp.
func EvaluateAll(resp *capture.Response, assertions []Assertion, opts ...EvaluatorOption) []*Result {
	evaluator := NewEvaluator(resp, opts...)
	results := make([]*Result, len(assertions))
	for i, a := range assertions {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}
