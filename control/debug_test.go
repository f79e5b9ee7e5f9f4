package control

import "testing"

func TestDebugProbesDumpState(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("answer", func() any { return 42 })

	state := dp.DumpState()
	if state["answer"] != 42 {
		t.Fatalf("state[answer] = %v, want 42", state["answer"])
	}
}

func TestRegisterReactorProbesExposesMetricsAndConfig(t *testing.T) {
	dp := NewDebugProbes()
	mr := NewMetricsRegistry()
	cs := NewConfigStore()

	mr.SetActiveThreads(1)
	RegisterReactorProbes(dp, mr, cs)

	state := dp.DumpState()

	metricsSnap, ok := state["reactor.metrics"].(map[string]any)
	if !ok {
		t.Fatalf("reactor.metrics probe returned %T, want map[string]any", state["reactor.metrics"])
	}
	if v, _ := metricsSnap["active_threads"].(float64); v != 1 {
		t.Fatalf("active_threads via probe = %v, want 1", metricsSnap["active_threads"])
	}

	if _, ok := state["reactor.config"].(map[string]any); !ok {
		t.Fatalf("reactor.config probe returned %T, want map[string]any", state["reactor.config"])
	}
}

func TestTriggerHotReloadSyncInvokesHooksSynchronously(t *testing.T) {
	called := false
	RegisterReloadHook(func() { called = true })
	TriggerHotReloadSync()

	if !called {
		t.Fatal("expected TriggerHotReloadSync to invoke registered hooks")
	}
}
