package trace

import (
	"testing"
)

func TestDebug(t *testing.T) {
	d := NewDebuger(true)
	d.DbgPrint("jack")
	NewDebuger(false).DbgPrint("never shown")
}
