package genieacs

import "encoding/json"

// Task names understood by the ACS task endpoint.
const (
	TaskRefreshObject      = "refreshObject"
	TaskAddObject          = "addObject"
	TaskDeleteObject       = "deleteObject"
	TaskSetParameterValues = "setParameterValues"
	TaskReboot             = "reboot"
)

// XSD type tags attached to parameter values.
const (
	TypeString      = "xsd:string"
	TypeUnsignedInt = "xsd:unsignedInt"
	TypeBoolean     = "xsd:boolean"
)

// Task is a unit of work queued on the ACS for one device.
type Task struct {
	Name            string           `json:"name"`
	ObjectName      string           `json:"objectName,omitempty"`
	ParameterValues []ParameterValue `json:"parameterValues,omitempty"`
}

// ParameterValue is one write of a setParameterValues task.
type ParameterValue struct {
	Path  string
	Value any
	Type  string
}

// MarshalJSON encodes the value as the [path, value, type] tuple the ACS expects.
func (p ParameterValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Path, p.Value, p.Type})
}

func RefreshObject(path string) Task {
	return Task{Name: TaskRefreshObject, ObjectName: path}
}

func AddObject(path string) Task {
	return Task{Name: TaskAddObject, ObjectName: path}
}

func DeleteObject(path string) Task {
	return Task{Name: TaskDeleteObject, ObjectName: path}
}

func SetParameterValues(values ...ParameterValue) Task {
	return Task{Name: TaskSetParameterValues, ParameterValues: values}
}

func Reboot() Task {
	return Task{Name: TaskReboot}
}

// Paths returns the parameter paths written by a setParameterValues task, in order.
func (t Task) Paths() []string {
	paths := make([]string, 0, len(t.ParameterValues))
	for _, pv := range t.ParameterValues {
		paths = append(paths, pv.Path)
	}
	return paths
}

// Value returns the value written to path, if present.
func (t Task) Value(path string) (ParameterValue, bool) {
	for _, pv := range t.ParameterValues {
		if pv.Path == path {
			return pv, true
		}
	}
	return ParameterValue{}, false
}

// TaskOption adjusts how a task is submitted.
type TaskOption func(*taskOptions)

type taskOptions struct {
	connectionRequest bool
}

// WithConnectionRequest asks the ACS to trigger a connection request so the task runs now.
func WithConnectionRequest() TaskOption {
	return func(o *taskOptions) {
		o.connectionRequest = true
	}
}

func applyTaskOptions(opts []TaskOption) taskOptions {
	var o taskOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
