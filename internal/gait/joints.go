package gait

import "strconv"

// JointID identifies one joint of the fixed 17-joint COCO skeleton.
// Modelling the vocabulary as a typed enum (rather than a string-keyed
// map) makes missing or unexpected joints a construction-time concern:
// a skeleton frame is a fixed-size array with one slot per joint, and
// an undetected joint is a zero-confidence entry, never an absent key.
type JointID int

const (
	Nose JointID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// NumJoints is the size of the skeleton vocabulary.
const NumJoints = 17

var jointNames = [NumJoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// String returns the snake_case joint name, or "joint_N" for values
// outside the vocabulary.
func (j JointID) String() string {
	if j >= 0 && int(j) < NumJoints {
		return jointNames[j]
	}
	return "joint_" + strconv.Itoa(int(j))
}

// Valid reports whether j is within the skeleton vocabulary.
func (j JointID) Valid() bool {
	return j >= 0 && int(j) < NumJoints
}

// FootSide distinguishes the left and right foot for cycle bookkeeping.
type FootSide int

const (
	FootLeft FootSide = iota
	FootRight
)

// String returns "left" or "right".
func (f FootSide) String() string {
	if f == FootLeft {
		return "left"
	}
	return "right"
}

// Ankle returns the ankle joint for the foot side.
func (f FootSide) Ankle() JointID {
	if f == FootLeft {
		return LeftAnkle
	}
	return RightAnkle
}

// Other returns the opposite foot side.
func (f FootSide) Other() FootSide {
	if f == FootLeft {
		return FootRight
	}
	return FootLeft
}
