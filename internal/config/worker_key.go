package config

type WorkerKeyStruct struct {
	TimeFlushQueue string
}

var WorkerKey = &WorkerKeyStruct{
	TimeFlushQueue: "persist_remaining_time_queue",
}
