package harness

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"reflect"

	"github.com/modelproof/estcheck/internal/registry"
)

// ValidEstimatorTags lists the tag names estimator classes and instances may
// carry. Unknown tags are a conformance violation: they are usually typos
// that silently disable behavior.
var ValidEstimatorTags = []string{
	"tests:skip_all",
	"tests:skip_by_name",
	"requires_cython",
	"reserved_params",
	"scitype:y",
	"requires-fh-in-fit",
	"python_dependencies",
	"capability:pred_int",
}

// DefaultChecks returns the standard conformance checks over the shared
// estimator object contract. Bodies are thin: all combinatorial structure
// lives in the fixture resolver.
func DefaultChecks() []*Check {
	return []*Check{
		{Name: "test_create_test_instance", Vars: []string{VarEstimatorClass}, Fn: checkCreateTestInstance},
		{Name: "test_get_test_params", Vars: []string{VarEstimatorClass}, Fn: checkGetTestParams},
		{Name: "test_get_test_params_coverage", Vars: []string{VarEstimatorClass}, Fn: checkGetTestParamsCoverage},
		{Name: "test_create_test_instances_and_names", Vars: []string{VarEstimatorClass}, Fn: checkCreateTestInstancesAndNames},
		{Name: "test_constructor", Vars: []string{VarEstimatorClass}, Fn: checkConstructor},
		{Name: "test_estimator_tags", Vars: []string{VarEstimatorClass}, Fn: checkEstimatorClassTags},
		{Name: "test_valid_estimator_tags", Vars: []string{VarEstimatorInstance}, Fn: checkEstimatorInstanceTags},
		{Name: "test_get_params", Vars: []string{VarEstimatorInstance}, Fn: checkGetParams},
		{Name: "test_set_params", Vars: []string{VarEstimatorInstance}, Fn: checkSetParams},
		{Name: "test_set_params_defaults", Vars: []string{VarEstimatorClass}, Fn: checkSetParamsDefaults},
		{Name: "test_clone", Vars: []string{VarEstimatorInstance}, Fn: checkClone},
		{Name: "test_clone_after_fit", Vars: []string{VarEstimatorInstance, VarScenario}, Fn: checkCloneAfterFit},
		{Name: "test_fit_updates_state", Vars: []string{VarEstimatorInstance, VarScenario}, Fn: checkFitUpdatesState},
		{Name: "test_fit_returns_self", Vars: []string{VarEstimatorInstance, VarScenario}, Fn: checkFitReturnsSelf},
		{Name: "test_raises_not_fitted_error", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSC}, Fn: checkRaisesNotFittedError},
		{Name: "test_fit_idempotent", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSCArraylike}, Fn: checkFitIdempotent},
		{Name: "test_fit_does_not_overwrite_hyper_params", Vars: []string{VarEstimatorInstance, VarScenario}, Fn: checkFitKeepsHyperParams},
		{Name: "test_non_state_changing_method_contract", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSC}, Fn: checkNonStateChangingContract},
		{Name: "test_methods_have_no_side_effects", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSC}, Fn: checkNoArgSideEffects},
		{Name: "test_persistence_via_save", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSCArraylike}, Fn: checkPersistenceViaSave},
		{Name: "test_save_estimators_to_file", Vars: []string{VarEstimatorInstance, VarScenario, VarMethodNSCArraylike}, Fn: checkPersistenceToFile},
		// part1 mutates, part2 observes; the executor's per-assignment
		// cloning is what keeps part2 green.
		{Name: "test_no_cross_test_side_effects_part1", Vars: []string{VarEstimatorInstance, VarScenario}, Fn: checkCrossTestSideEffectsPart1},
		{Name: "test_no_cross_test_side_effects_part2", Vars: []string{VarEstimatorInstance}, Fn: checkCrossTestSideEffectsPart2},
		{
			Name:   "test_no_between_test_case_side_effects",
			Vars:   []string{VarEstimatorInstance, VarScenario},
			Params: []Axis{{Var: "a", Values: []any{true, 42}}},
			Fn:     checkBetweenCaseSideEffects,
		},
	}
}

func checkCreateTestInstance(ctx *Context) error {
	class := ctx.Class()
	inst, err := class.CreateTestInstance()
	if err != nil {
		return ctx.violationf("create_test_instance failed: %v", err)
	}
	if inst == nil {
		return ctx.violationf("create_test_instance returned nil")
	}
	if inst.ClassName() != class.Name {
		return ctx.violationf("create_test_instance returned class %q, want %q", inst.ClassName(), class.Name)
	}
	return nil
}

func checkGetTestParams(ctx *Context) error {
	class := ctx.Class()
	valid := make(map[string]bool, len(class.ParamNames))
	for _, name := range class.ParamNames {
		valid[name] = true
	}
	for i, set := range class.GetTestParams() {
		if set == nil {
			return ctx.violationf("test parameter set %d is nil", i)
		}
		for name := range set {
			if !valid[name] {
				return ctx.violationf("test parameter set %d uses %q, which is not a declared parameter name", i, name)
			}
		}
	}
	return nil
}

func checkGetTestParamsCoverage(ctx *Context) error {
	class := ctx.Class()
	reserved := make(map[string]bool)
	for _, name := range class.ClassTags.GetStrings("reserved_params") {
		reserved[name] = true
	}
	unreserved := 0
	for _, name := range class.ParamNames {
		if !reserved[name] {
			unreserved++
		}
	}
	if unreserved > 0 && len(class.GetTestParams()) < 2 {
		return ctx.violationf("should declare at least two test parameter sets, found %d", len(class.GetTestParams()))
	}
	return nil
}

func checkCreateTestInstancesAndNames(ctx *Context) error {
	class := ctx.Class()
	instances, names, err := class.TestInstances()
	if err != nil {
		return ctx.violationf("test_instances failed: %v", err)
	}
	if len(instances) != len(names) {
		return ctx.violationf("instances and names have different lengths: %d vs %d", len(instances), len(names))
	}
	for i, inst := range instances {
		if inst.ClassName() != class.Name {
			return ctx.violationf("instance %d has class %q, want %q", i, inst.ClassName(), class.Name)
		}
		if names[i] == "" {
			return ctx.violationf("instance %d has an empty display name", i)
		}
	}
	return nil
}

// checkConstructor verifies the construction contract: every declared
// parameter is reported by GetParams, and parameters not touched by the
// first test parameter set keep their declared defaults.
func checkConstructor(ctx *Context) error {
	class := ctx.Class()
	inst, err := class.CreateTestInstance()
	if err != nil {
		return ctx.violationf("construction failed: %v", err)
	}

	params := inst.GetParams()
	for _, name := range class.ParamNames {
		if _, ok := params[name]; !ok {
			return ctx.violationf("constructor does not store parameter %q", name)
		}
	}

	testSet := class.GetTestParams()[0]
	reserved := make(map[string]bool)
	for _, name := range class.ClassTags.GetStrings("reserved_params") {
		reserved[name] = true
	}
	for name, def := range class.ParamDefaults {
		if _, overridden := testSet[name]; overridden || reserved[name] {
			continue
		}
		if !reflect.DeepEqual(params[name], def) {
			return ctx.violationf("parameter %q changed from default %v to %v during construction", name, def, params[name])
		}
	}
	return nil
}

func checkEstimatorClassTags(ctx *Context) error {
	return validTags(ctx, ctx.Class().ClassTags)
}

func checkEstimatorInstanceTags(ctx *Context) error {
	return validTags(ctx, ctx.Instance().GetTags())
}

func validTags(ctx *Context, tags registry.Tags) error {
	valid := make(map[string]bool, len(ValidEstimatorTags))
	for _, name := range ValidEstimatorTags {
		valid[name] = true
	}
	for name := range tags {
		if !valid[name] {
			return ctx.violationf("invalid tag %q", name)
		}
	}
	return nil
}

func checkGetParams(ctx *Context) error {
	inst := ctx.Instance()
	params := inst.GetParams()
	if params == nil {
		return ctx.violationf("get_params returned nil")
	}
	cloneParams := inst.Clone().GetParams()
	if !reflect.DeepEqual(params, cloneParams) {
		return ctx.violationf("clone params %v differ from original params %v", cloneParams, params)
	}
	return nil
}

func checkSetParams(ctx *Context) error {
	inst := ctx.Instance()
	params := inst.GetParams()
	if err := inst.SetParams(params); err != nil {
		return ctx.violationf("set_params(get_params()) failed: %v", err)
	}
	after := inst.GetParams()
	if !reflect.DeepEqual(params, after) {
		return ctx.violationf("get_params after set_params is %v, want %v", after, params)
	}
	return nil
}

// checkSetParamsDefaults sets each declared test parameter set on top of the
// full defaults and verifies the round trip, mirroring the constructor-
// compatibility check of the reference test suite.
func checkSetParamsDefaults(ctx *Context) error {
	class := ctx.Class()
	inst, err := class.CreateTestInstance()
	if err != nil {
		return ctx.violationf("construction failed: %v", err)
	}
	reserved := make(map[string]bool)
	for _, name := range class.ClassTags.GetStrings("reserved_params") {
		reserved[name] = true
	}

	for i, set := range class.GetTestParams() {
		full := maps.Clone(class.ParamDefaults)
		if full == nil {
			full = map[string]any{}
		}
		maps.Copy(full, set)

		if err := inst.SetParams(full); err != nil {
			return ctx.violationf("set_params with test set %d failed: %v", i, err)
		}
		got := inst.GetParams()
		for name, want := range full {
			if reserved[name] {
				continue
			}
			if !reflect.DeepEqual(got[name], want) {
				return ctx.violationf("after set_params with test set %d, parameter %q is %v, want %v", i, name, got[name], want)
			}
		}
	}
	return nil
}

func checkClone(ctx *Context) error {
	inst := ctx.Instance()
	clone := inst.Clone()
	if clone == nil {
		return ctx.violationf("clone returned nil")
	}
	if clone == inst {
		return ctx.violationf("clone returned the receiver itself")
	}
	if clone.ClassName() != inst.ClassName() {
		return ctx.violationf("clone has class %q, want %q", clone.ClassName(), inst.ClassName())
	}
	if !reflect.DeepEqual(clone.GetParams(), inst.GetParams()) {
		return ctx.violationf("clone params differ from original")
	}
	if clone.IsFitted() {
		return ctx.violationf("clone reports fitted before any fit")
	}
	return nil
}

// checkCloneAfterFit is the part of the clone contract checkClone cannot
// see: a clone of a fitted estimator must be unfitted.
func checkCloneAfterFit(ctx *Context) error {
	inst := ctx.Instance()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	if _, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	if clone := inst.Clone(); clone.IsFitted() {
		return ctx.violationf("clone of a fitted estimator reports fitted")
	}
	return nil
}

func checkFitUpdatesState(ctx *Context) error {
	inst := ctx.Instance()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	if inst.IsFitted() {
		return ctx.violationf("is_fitted is true before fit")
	}
	if _, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	if !inst.IsFitted() {
		return ctx.violationf("is_fitted is false after fit")
	}
	return nil
}

func checkFitReturnsSelf(ctx *Context) error {
	inst := ctx.Instance()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	result, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}})
	if err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	if result.Last() != any(inst) {
		return ctx.violationf("fit did not return the estimator itself")
	}
	return nil
}

func checkRaisesNotFittedError(ctx *Context) error {
	inst := ctx.Instance()
	method := ctx.MethodNSC()
	_, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{method}})
	if err == nil {
		return ctx.violationf("method %s succeeded on an unfitted estimator", method)
	}
	if !errors.Is(err, registry.ErrNotFitted) {
		return ctx.violationf("method %s on an unfitted estimator returned %v, want ErrNotFitted", method, err)
	}
	return nil
}

func checkFitIdempotent(ctx *Context) error {
	inst := ctx.Instance()
	method := ctx.MethodNSC()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	scenario := ctx.Scenario()

	first, err := scenario.Run(inst, registry.RunArgs{
		MethodSequence: []string{"fit", method},
		ReturnAll:      true,
		DeepcopyReturn: true,
	})
	if err != nil {
		return ctx.violationf("first fit+%s failed: %v", method, err)
	}
	second, err := scenario.Run(inst, registry.RunArgs{
		MethodSequence: []string{"fit", method},
		ReturnAll:      true,
		DeepcopyReturn: true,
	})
	if err != nil {
		return ctx.violationf("second fit+%s failed: %v", method, err)
	}
	if !reflect.DeepEqual(first.Values[1], second.Values[1]) {
		return ctx.violationf("%s results differ between first and second fit: %v vs %v", method, first.Values[1], second.Values[1])
	}
	return nil
}

func checkFitKeepsHyperParams(ctx *Context) error {
	inst := ctx.Instance()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	before := maps.Clone(inst.GetParams())
	if _, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	after := inst.GetParams()
	for name, want := range before {
		if !reflect.DeepEqual(after[name], want) {
			return ctx.violationf("fit mutated hyper-parameter %q from %v to %v", name, want, after[name])
		}
	}
	return nil
}

// checkNonStateChangingContract fits, snapshots the observable state, runs
// one non-state-changing method, and verifies the snapshot is unchanged.
func checkNonStateChangingContract(ctx *Context) error {
	inst := ctx.Instance()
	method := ctx.MethodNSC()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	scenario := ctx.Scenario()

	if _, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	paramsBefore := maps.Clone(inst.GetParams())
	fittedBefore, err := fittedSnapshot(inst)
	if err != nil {
		return ctx.violationf("snapshot before %s failed: %v", method, err)
	}

	result, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{method}})
	if err != nil {
		return ctx.violationf("%s failed: %v", method, err)
	}

	if !reflect.DeepEqual(inst.GetParams(), paramsBefore) {
		return ctx.violationf("%s changed hyper-parameters", method)
	}
	fittedAfter, err := fittedSnapshot(inst)
	if err != nil {
		return ctx.violationf("snapshot after %s failed: %v", method, err)
	}
	if !reflect.DeepEqual(fittedAfter, fittedBefore) {
		return ctx.violationf("%s changed fitted state", method)
	}

	if method == "get_fitted_params" {
		if _, ok := result.Last().(map[string]any); !ok {
			return ctx.violationf("get_fitted_params returned %T, want map[string]any", result.Last())
		}
	}
	return nil
}

func fittedSnapshot(inst registry.Estimator) (map[string]any, error) {
	g, ok := inst.(registry.FittedParamsGetter)
	if !ok {
		return nil, nil
	}
	return g.GetFittedParams()
}

func checkNoArgSideEffects(ctx *Context) error {
	inst := ctx.Instance()
	method := ctx.MethodNSC()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	scenario := ctx.Scenario()

	fitResult, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}, ReturnArgs: true})
	if err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	if !reflect.DeepEqual(fitResult.ArgsAfter[0], scenario.Args("fit")) {
		return ctx.violationf("fit mutated its arguments")
	}

	methodResult, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{method}, ReturnArgs: true})
	if err != nil {
		return ctx.violationf("%s failed: %v", method, err)
	}
	if !reflect.DeepEqual(methodResult.ArgsAfter[0], scenario.GetArgs(method, inst)) {
		return ctx.violationf("%s mutated its arguments", method)
	}
	return nil
}

func checkPersistenceViaSave(ctx *Context) error {
	return persistenceRoundTrip(ctx, "")
}

func checkPersistenceToFile(ctx *Context) error {
	dir, err := os.MkdirTemp("", "estcheck-save")
	if err != nil {
		return ctx.violationf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	return persistenceRoundTrip(ctx, filepath.Join(dir, "estimator.json"))
}

// persistenceRoundTrip fits, predicts, saves, reloads, and verifies the
// reloaded estimator reproduces the prediction. With an empty path the
// in-memory handle is round-tripped; otherwise the on-disk file is.
func persistenceRoundTrip(ctx *Context, path string) error {
	inst := ctx.Instance()
	method := ctx.MethodNSC()
	saver, ok := inst.(registry.Saver)
	if !ok {
		return Skipf("estimator does not implement save")
	}
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	scenario := ctx.Scenario()

	if _, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	vanilla, err := scenario.Run(inst, registry.RunArgs{MethodSequence: []string{method}})
	if err != nil {
		return ctx.violationf("%s failed: %v", method, err)
	}

	handle, err := saver.Save(path)
	if err != nil {
		return ctx.violationf("save failed: %v", err)
	}
	var loaded registry.Estimator
	if path == "" {
		loaded, err = ctx.Suite.Directory().Load(handle)
	} else {
		loaded, err = ctx.Suite.Directory().Load(path)
	}
	if err != nil {
		return ctx.violationf("load failed: %v", err)
	}

	reloaded, err := scenario.Run(loaded, registry.RunArgs{MethodSequence: []string{method}})
	if err != nil {
		return ctx.violationf("%s on the loaded estimator failed: %v", method, err)
	}
	if !reflect.DeepEqual(vanilla.Last(), reloaded.Last()) {
		return ctx.violationf("%s results differ after save/load: %v vs %v", method, vanilla.Last(), reloaded.Last())
	}
	return nil
}

func checkCrossTestSideEffectsPart1(ctx *Context) error {
	inst := ctx.Instance()
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	// Mutate assignment-local state; part2 verifies it never leaks.
	if _, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	return nil
}

func checkCrossTestSideEffectsPart2(ctx *Context) error {
	if ctx.Instance().IsFitted() {
		return ctx.violationf("state from a previous assignment leaked into a fresh instance")
	}
	return nil
}

func checkBetweenCaseSideEffects(ctx *Context) error {
	inst := ctx.Instance()
	if inst.IsFitted() {
		return ctx.violationf("state from a sibling test case leaked into a fresh instance")
	}
	if !registry.HasCapability(inst, "fit") {
		return Skipf("estimator has no fit")
	}
	if _, err := ctx.Scenario().Run(inst, registry.RunArgs{MethodSequence: []string{"fit"}}); err != nil {
		return ctx.violationf("fit failed: %v", err)
	}
	return nil
}
