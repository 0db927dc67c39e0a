// Package audit provides the audit sinks available to the service and the
// registry that builds them from configuration.
//
// Sinks register themselves by type name:
//
//	audit:
//	  sinks:
//	    - type: kafka
//	      conf:
//	        brokers: ["localhost:9092"]
//	        topic: worklog.audit
//	    - type: log
package audit
