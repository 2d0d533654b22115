package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/config"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/matching"
	"github.com/doudou/flexmock/coreengine/observability"
	"github.com/doudou/flexmock/coreengine/typeutil"
	"github.com/doudou/flexmock/mockbus"
)

// Report is the result of running a scenario.
type Report struct {
	Name                 string       `json:"name"`
	Calls                []CallResult `json:"calls"`
	VerificationFailures []string     `json:"verification_failures"`
	ExpectedFailures     int          `json:"expected_failures"`
	Passed               bool         `json:"passed"`
}

// CallResult is the outcome of one scripted call.
type CallResult struct {
	Index    int     `json:"index"`
	Call     string  `json:"call"`
	Result   any     `json:"result,omitempty"`
	Outcome  string  `json:"outcome"`
	Error    string  `json:"error,omitempty"`
	Yields   [][]any `json:"yields,omitempty"`
	Passed   bool    `json:"passed"`
	Mismatch string  `json:"mismatch,omitempty"`
}

// EffectiveConfig overlays the scenario's config section on base. A nil base
// means the global configuration.
func EffectiveConfig(sc *Scenario, base *config.EngineConfig) *config.EngineConfig {
	if base == nil {
		base = config.GetEngineConfig()
	}
	merged := base.ToMap()
	for k, v := range sc.Config {
		merged[k] = v
	}
	return config.EngineConfigFromMap(merged)
}

// Run declares the scenario's mocks in a fresh scope, plays the call script
// and closes the scope. The returned error reports a scenario that could not
// be declared; call and verification mismatches are reported in the Report.
func Run(ctx context.Context, sc *Scenario, base *config.EngineConfig, opts ...mockbus.Option) (*Report, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}
	cfg := EffectiveConfig(sc, base)
	opts = append(opts, mockbus.WithConfigProvider(config.NewStaticConfigProvider(cfg)))

	report := &Report{Name: sc.Name, ExpectedFailures: sc.Verify.Failures}
	var buildErr error

	err := mockbus.Use(func(scope *mockbus.Scope) error {
		mocks, _, err := build(scope, sc)
		if err != nil {
			buildErr = err
			return err
		}
		for i, def := range sc.Calls {
			report.Calls = append(report.Calls, play(ctx, i+1, mocks[def.Mock], def))
		}
		return nil
	}, opts...)
	if buildErr != nil {
		return nil, buildErr
	}

	for _, f := range failure.Collect(err) {
		report.VerificationFailures = append(report.VerificationFailures, f.Error())
	}

	report.Passed = len(report.VerificationFailures) == sc.Verify.Failures
	for _, c := range report.Calls {
		report.Passed = report.Passed && c.Passed
	}
	return report, nil
}

func play(ctx context.Context, index int, m *mockbus.Mock, def CallDef) CallResult {
	inv := calls.Invocation{
		Method: def.Method,
		Args:   normalizeAll(def.Args),
		Kwargs: normalizeKwargs(def.Kwargs),
	}

	res := CallResult{Index: index, Call: m.Name() + "." + inv.String()}
	if def.Block {
		inv.Block = func(args ...any) any {
			res.Yields = append(res.Yields, append([]any{}, args...))
			if len(args) == 1 {
				return args[0]
			}
			return args
		}
	}

	result, err := m.Invoke(ctx, inv)
	res.Result = result
	res.Outcome = observability.Outcome(err)
	if err != nil {
		res.Error = err.Error()
	}
	res.Mismatch = mismatch(def.Expect, result, res.Outcome, err)
	res.Passed = res.Mismatch == ""
	return res
}

func mismatch(want ExpectDef, result any, outcome string, err error) string {
	wantOutcome := want.Outcome
	if wantOutcome == "" {
		wantOutcome = "ok"
	}
	if outcome != wantOutcome {
		return fmt.Sprintf("expected outcome %s, got %s", wantOutcome, outcome)
	}
	if want.Message != "" && (err == nil || !strings.Contains(err.Error(), want.Message)) {
		return fmt.Sprintf("expected error containing %q", want.Message)
	}
	if want.Return != nil {
		pattern, perr := Pattern(want.Return)
		if perr != nil {
			return perr.Error()
		}
		if !matching.Match(pattern, result) {
			return fmt.Sprintf("expected return %s, got %s", matching.Render(pattern), matching.Render(result))
		}
	}
	return ""
}

func normalizeKwargs(kwargs map[string]any) map[string]any {
	if kwargs == nil {
		return nil
	}
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = typeutil.NormalizeDecoded(v)
	}
	return out
}

// String renders the report for terminals.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Name)
	for _, c := range r.Calls {
		status := "ok"
		if !c.Passed {
			status = "FAIL: " + c.Mismatch
		}
		answer := matching.Render(c.Result)
		if c.Error != "" {
			answer = c.Outcome + ": " + firstLine(c.Error)
		}
		fmt.Fprintf(&b, "  [%d] %s => %s (%s)\n", c.Index, c.Call, answer, status)
	}
	fmt.Fprintf(&b, "verification: %d failure(s), expected %d\n", len(r.VerificationFailures), r.ExpectedFailures)
	for _, f := range r.VerificationFailures {
		for _, line := range strings.Split(strings.TrimRight(f, "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if r.Passed {
		b.WriteString("result: PASS\n")
	} else {
		b.WriteString("result: FAIL\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Describe declares the scenario's mocks without playing any call and
// renders the description of every expectation, per mock in file order.
func Describe(sc *Scenario, base *config.EngineConfig, opts ...mockbus.Option) (string, error) {
	if err := sc.validate(); err != nil {
		return "", err
	}
	cfg := EffectiveConfig(sc, base)
	cfg.VerifyOnClose = false
	opts = append(opts, mockbus.WithConfigProvider(config.NewStaticConfigProvider(cfg)))

	scope := mockbus.NewScope(opts...)
	defer scope.Close()

	_, declared, err := build(scope, sc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, md := range sc.Mocks {
		fmt.Fprintf(&b, "%s:\n", md.Name)
		for _, e := range declared[md.Name] {
			fmt.Fprintf(&b, "  %s\n", e.Description())
		}
	}
	return b.String(), nil
}
