// Package instructions carries the follow-up work of case transitions to the
// systems that perform it.
//
// The Dispatcher enqueues one asynq task per instruction so every instruction
// is retried on its own; the Worker consumes the queue and hands each task to
// an Executor. The Inline dispatcher runs the Executor directly for setups
// without Redis.
package instructions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"zac/internal/zaak/models"
)

const taskPrefix = "zaak:"

// TaskType returns the asynq task type of an instruction kind.
func TaskType(kind models.InstructionKind) string {
	return taskPrefix + string(kind)
}

var kinds = []models.InstructionKind{
	models.InstructionPersistCase,
	models.InstructionShiftTaskDueDate,
	models.InstructionReindexCase,
	models.InstructionNotifyParent,
	models.InstructionSetInitiator,
}

func NewTask(in models.Instruction) (*asynq.Task, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskType(in.Kind), data), nil
}

// ParseTask decodes an instruction and checks it against the task type.
func ParseTask(task *asynq.Task) (models.Instruction, error) {
	var in models.Instruction
	if err := json.Unmarshal(task.Payload(), &in); err != nil {
		return models.Instruction{}, fmt.Errorf("decode instruction: %w", err)
	}
	if got := strings.TrimPrefix(task.Type(), taskPrefix); got != string(in.Kind) {
		return models.Instruction{}, fmt.Errorf("task type %q does not match instruction kind %q", task.Type(), in.Kind)
	}
	return in, nil
}
