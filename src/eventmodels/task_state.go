package eventmodels

type TaskState string

const (
	TaskStatePending             TaskState = "pending"
	TaskStateContractLookup      TaskState = "contract_lookup"
	TaskStateActive              TaskState = "active"
	TaskStateCoreOptionsPending  TaskState = "core_options_pending"
	TaskStateRangeOptionsPending TaskState = "range_options_pending"
	TaskStateCompleted           TaskState = "completed"
	TaskStateAborted             TaskState = "aborted"
	TaskStateFailedLookup        TaskState = "failed_lookup"
	TaskStateFailedNoOptions     TaskState = "failed_no_options"
	TaskStateFailedMissingLeg    TaskState = "failed_missing_leg"
	TaskStateTimeoutCoreOptions  TaskState = "timeout_core_options"
	TaskStateTimeoutOverall      TaskState = "timeout_overall"
)

func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateAborted, TaskStateFailedLookup,
		TaskStateFailedNoOptions, TaskStateFailedMissingLeg,
		TaskStateTimeoutCoreOptions, TaskStateTimeoutOverall:
		return true
	}

	return false
}

func (s TaskState) String() string {
	return string(s)
}
