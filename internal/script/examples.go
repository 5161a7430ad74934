package script

import "sort"

// prelude is evaluated before every script.
const prelude = `
function clamp(v, lo, hi) { return Math.max(lo, Math.min(hi, v)); }

function head(a, k) {
  var out = [];
  for (var i = 0; i < Math.min(k, a.length); i++) out.push(a[i]);
  return out;
}

function range(n) {
  var out = [];
  for (var i = 0; i < n; i++) out.push(i);
  return out;
}

function help() {
  print("Available functions:");
  print("  get_num_actuators()   get_actuator_names()   get_actuator_ranges()");
  print("  set_control(ctrl)     get_control()          get_sensor_data()");
  print("  get_qpos()            get_qvel()             get_time()");
  print("  get_body_names()      apply_force(body, [fx,fy,fz,tx,ty,tz], [px,py,pz])");
  print("  get_camera_names()    use_camera(i)          set_camera_pose(pos, target)");
  print("  reset()               step(n)                print_info()");
  print("  sleep(ms)             clamp(v, lo, hi)       range(n)");
  print("The simulation must be running to see movement.");
}
`

// Examples are ready-to-run scripts, keyed by name.
var Examples = map[string]string{
	"basic_control": `// Neutral pose, then nudge the first actuator.
var n = get_num_actuators();
print("Actuators: " + n);

var control = range(n).map(function () { return 0; });
set_control(control);
print("Reset to neutral position");

if (n > 0) {
  control[0] = 0.5;
  set_control(control);
  print("Moved first actuator to 0.5");
}
`,

	"sine_wave": `// Phase-shifted sine on every actuator.
var t = get_time();
var n = get_num_actuators();
var ranges = get_actuator_ranges();

var control = [];
for (var i = 0; i < n; i++) {
  var freq = 0.5;
  var phase = i * (Math.PI / 4);
  var value = 0.3 * Math.sin(2 * Math.PI * freq * t + phase);
  if (i < ranges.length) value = clamp(value, ranges[i][0], ranges[i][1]);
  control.push(value);
}

set_control(control);
print("Time: " + t.toFixed(2) + "s");
print("Applied sine wave control");
`,

	"walking_pattern": `// Alternate sine and cosine between neighbouring actuators.
var t = get_time();
var n = get_num_actuators();

var control = [];
for (var i = 0; i < n; i++) {
  control.push(i % 2 === 0 ? 0.3 * Math.sin(2 * t) : 0.3 * Math.cos(2 * t));
}

set_control(control);
print("Walking pattern at t=" + t.toFixed(2) + "s");
`,

	"pd_control": `// PD toward a quarter of each range's midpoint.
var n = get_num_actuators();
var ranges = get_actuator_ranges();

var target = [];
for (var i = 0; i < n; i++) {
  target.push(i < ranges.length ? (ranges[i][0] + ranges[i][1]) / 2 * 0.5 : 0);
}

var qpos = get_qpos();
var qvel = get_qvel();
var kp = 5.0, kd = 0.5;

var control = [];
var m = Math.min(n, qpos.length, target.length);
var sq = 0;
for (var i = 0; i < m; i++) {
  var err = target[i] - qpos[i];
  sq += err * err;
  var u = kp * err - kd * qvel[i];
  if (i < ranges.length) u = clamp(u, ranges[i][0], ranges[i][1]);
  control.push(u);
}
while (control.length < n) control.push(0);

set_control(control);
print("PD control applied");
print("Error norm: " + Math.sqrt(sq).toFixed(3));
`,

	"oscillation": `// Three actuator groups at different frequencies.
var t = get_time();
var n = get_num_actuators();
var ranges = get_actuator_ranges();

var control = [];
for (var i = 0; i < n; i++) {
  var value;
  if (i < Math.floor(n / 3)) {
    value = 0.4 * Math.sin(t);
  } else if (i < Math.floor(2 * n / 3)) {
    value = 0.3 * Math.sin(3 * t + Math.PI / 4);
  } else {
    value = 0.2 * Math.cos(2 * t);
  }
  if (i < ranges.length) value = clamp(value, ranges[i][0], ranges[i][1]);
  control.push(value);
}

set_control(control);
print("Multi-frequency pattern at t=" + t.toFixed(2) + "s");
print("Sample values: " + control.slice(0, 3).map(function (c) { return c.toFixed(2); }).join(", ") + "...");
`,

	"info": `// Model summary and current state.
print_info();

print("Current State:");
print("  Time: " + get_time().toFixed(3) + "s");
print("  Control: " + JSON.stringify(head(get_control(), 3)) + "...");
print("  Position length: " + get_qpos().length);
print("  Velocity length: " + get_qvel().length);
`,

	"loop": `// Drive a sine wave until stopped.
var n = get_num_actuators();
while (true) {
  var t = get_time();
  var control = [];
  for (var i = 0; i < n; i++) control.push(0.5 * Math.sin(2 * t + i));
  set_control(control);
  sleep(20);
}
`,
}

// ExampleNames lists the examples in sorted order.
func ExampleNames() []string {
	names := make([]string, 0, len(Examples))
	for name := range Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
