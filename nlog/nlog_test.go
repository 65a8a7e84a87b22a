package nlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRoutesAndPrefixes(t *testing.T) {
	var out, errs bytes.Buffer
	l := New(&out, &errs)

	l.Printf("pulled %s", "core")
	l.Println("done")
	l.Warnf("mirror %s unreachable", "https://a")
	l.Errf("no usable shell")

	assert.Equal(t, "pulled core\ndone\n", out.String())
	assert.Equal(t, "warning: mirror https://a unreachable\nerror: no usable shell\n", errs.String())
}
