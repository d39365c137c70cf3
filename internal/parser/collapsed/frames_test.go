package collapsed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stack-analysis/pkg/model"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		input string
		want  model.Frame
	}{
		{"doSomething(libfoo.so)", model.Frame{Module: "libfoo.so", Method: "doSomething"}},
		{"tcp_sendmsg([kernel.kallsyms])", model.Frame{Module: "[kernel.kallsyms]", Method: "tcp_sendmsg"}},
		{"operator()(mystuff.so)", model.Frame{Module: "mystuff.so", Method: "operator()"}},
		{"ntdll!RtlUserThreadStart", model.Frame{Module: "ntdll", Method: "RtlUserThreadStart"}},
		{"doSomething", model.Frame{Module: UnknownModule, Method: "doSomething"}},
		{"!weird", model.Frame{Module: UnknownModule, Method: "!weird"}},
		{"func(", model.Frame{Module: UnknownModule, Method: "func("}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFrame(tt.input))
		})
	}
}

func TestParseThread(t *testing.T) {
	tests := []struct {
		input string
		want  Thread
	}{
		{"sap1009-?/1088670", Thread{Name: "sap1009", PID: -1, TID: 1088670}},
		{"java-42/43", Thread{Name: "java", PID: 42, TID: 43}},
		{"main-thread-?/1234", Thread{Name: "main-thread", PID: -1, TID: 1234}},
		{"nginx-812", Thread{Name: "nginx", PID: 812, TID: -1}},
		{"[Thread-7 tid=1060369]", Thread{Name: "Thread-7", PID: -1, TID: 1060369}},
		{"swapper", Thread{Name: "swapper", PID: -1, TID: -1}},
		{"my-service", Thread{Name: "my-service", PID: -1, TID: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseThread(tt.input))
		})
	}
}

func TestThread_Idle(t *testing.T) {
	assert.True(t, ParseThread("swapper").Idle())
	assert.True(t, ParseThread("swapper-0/0").Idle())
	assert.False(t, ParseThread("swapperd").Idle())
}

func TestSplitStack(t *testing.T) {
	thread, frames := splitStack("java-1/2;[Thread-7 tid=2];run(App.java);;[];work(App.java)")
	assert.Equal(t, "java", thread.Name)
	assert.Equal(t, []model.Frame{
		{Module: "App.java", Method: "work"},
		{Module: "App.java", Method: "run"},
	}, frames, "leaf first")

	_, frames = splitStack("thread-only")
	assert.Empty(t, frames)
}
