package scheduler

import "sync"

// MainQueue collects tasks that must run on one owning goroutine, typically
// the host's main loop. Any goroutine may Post; only the owner calls
// ExecuteAll.
type MainQueue struct {
	mu    sync.Mutex
	queue queue[Task]
}

func NewMainQueue() *MainQueue {
	return &MainQueue{}
}

func (q *MainQueue) Post(task Task) {
	if task == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue.Push(task)
}

// ExecuteAll runs queued tasks in order on the calling goroutine until the
// queue is empty, including tasks posted while it runs. The lock is not held
// while a task executes. It returns the number of tasks run.
func (q *MainQueue) ExecuteAll() int {
	n := 0
	for {
		q.mu.Lock()
		if q.queue.Len() == 0 {
			q.mu.Unlock()
			return n
		}
		task := q.queue.Pop()
		q.mu.Unlock()

		task()
		n++
	}
}

func (q *MainQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queue.Len()
}
