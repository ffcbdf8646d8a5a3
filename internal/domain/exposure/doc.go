/*
Package exposure manages the lifetime of bus object paths.

# Overview

Each entity embeds a Slot. The Manager issues the slot a path of the form
{base}/{id}, hands the object to a Transport, and records the path so it can
be resolved again. Unexposing retires the slot for good. Because entity ids
are never reused, a path is never issued twice.

The Manager never holds a slot lock while calling the Transport. Callers
that keep their own locks (the registry) are expected to release them too.

# Events

Added and Removed events are fanned out to subscribers without blocking:

	events, cancel := exposer.Subscribe(64)
	defer cancel()
	for ev := range events {
	    log.Println(ev.Type, ev.Path)
	}
*/
package exposure
