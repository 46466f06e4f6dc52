// Package io reads and writes resolved BPMN metadata as JSON.
//
// # JSON Format
//
// The document wraps the processes of one BPMN file:
//
//	{
//	  "format": "procmeta/v1",
//	  "filename": "order.bpmn",
//	  "hash": "9f86d0…",
//	  "processes": [
//	    {
//	      "id": "order_process",
//	      "nodes": [
//	        {"id": "review", "type": "userTask", "lane": "Sales",
//	         "position": {"x": 150, "y": 200}, "group": "Review Phase",
//	         "extensions": {"priority": "high"}}
//	      ]
//	    }
//	  ]
//	}
//
// Output is deterministic: processes and nodes keep document order, and map
// keys (extensions, lane conflicts) are sorted by encoding/json. Writing the
// same metadata twice yields identical bytes, which lets the result be cached
// and diffed.
//
// # Import
//
// [ReadJSON] and [ImportJSON] validate the format tag and reject records
// without an id or with duplicate ids within a process. Absent optional
// fields (lane, group, documentation, condition) decode to nil, exactly as
// the resolver produces them.
//
// # Export
//
//	err := io.ExportJSON(meta, "order.json")
package io
