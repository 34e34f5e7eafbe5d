package domain

import "time"

// CycleStats resume un ciclo de sondeo del monitor.
type CycleStats struct {
	Cycle      int64
	Addresses  int
	Fetched    int // activities devueltas por el feed
	Published  int // aceptadas y entregadas al distribuidor
	Duplicates int
	TooOld     int
	Malformed  int
	FeedErrors int // direcciones saltadas este ciclo
	Backlog    int // mensajes esperando a que haya workers
	Elapsed    time.Duration
}
