package types

// Task describes a segmentation objective served by a pretrained checkpoint.
type Task struct {
	// Human-readable task name, used as the `task` query value.
	// example: 3D Segmentation lungs covid
	Name string `json:"name" example:"3D Segmentation lungs covid"`
	// Checkpoint file name inside the weights directory.
	// example: 3d_swin_unetr_lungs_covid.pth
	WeightsFile string `json:"weights_file" example:"3d_swin_unetr_lungs_covid.pth"`
	// Number of output channels of the network head.
	// example: 4
	OutChannels int `json:"out_channels" example:"4"`
}

// PredictionStatus is the lifecycle state of a prediction job.
type PredictionStatus string

const (
	StatusPending   PredictionStatus = "pending"
	StatusRunning   PredictionStatus = "running"
	StatusSucceeded PredictionStatus = "succeeded"
	StatusFailed    PredictionStatus = "failed"
)

// Done reports whether the status is terminal.
func (s PredictionStatus) Done() bool {
	return s == StatusSucceeded || s == StatusFailed
}
