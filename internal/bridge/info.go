package bridge

import (
	"fmt"
	"strings"
)

// Info renders the loaded model summary: counts and one row per actuator
// with its range and current control.
func (t *Table) Info() string {
	var b strings.Builder
	ok := t.host.Do(func(tg *Target) {
		m := tg.Sim.Model()
		acts := names(m.ActuatorNames, tg.View.Ctrl.Len(), "actuator")
		fmt.Fprintf(&b, "model: %s\n", m.Name)
		fmt.Fprintf(&b, "bodies: %d  joints: %d  actuators: %d  sensors: %d  cameras: %d\n",
			tg.View.Xpos.Len(), m.NJnt, len(acts), m.NSensor, m.NCam)
		fmt.Fprintf(&b, "time: %.3f\n", tg.Sim.Data().Time)
		for i, name := range acts {
			lo, hi, _ := tg.View.Range(i)
			c, _ := tg.View.Ctrl.At(i)
			fmt.Fprintf(&b, "  [%2d] %-22s [%6.2f, %6.2f]  ctrl=%+.3f\n", i, name, lo, hi, c)
		}
	})
	if !ok {
		return "no model loaded\n"
	}
	return b.String()
}

// PrintInfo writes Info to the table's output and returns it.
func (t *Table) PrintInfo() string {
	s := t.Info()
	fmt.Fprint(t.out, s)
	return s
}
