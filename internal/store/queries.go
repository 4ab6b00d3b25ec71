package store

const taskHistoryTable = "task_history"

var taskHistoryColumns = []string{
	"id",
	"name",
	"worker",
	"seq",
	"started_at",
	"finished_at",
	"error_message",
	"panicked",
}
