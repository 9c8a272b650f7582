/*
Package reasoning implements multi-path (tree-of-thought) reasoning.

A query is fanned out into several independent generation calls at rising
temperatures. Each response is parsed into steps and a conclusion, scored by
a second generation call, and the path with the highest weighted score is
selected:

	combined = evaluation*EvalWeight + confidence*ConfWeight

Failed generations drop their path; failed evaluations keep the path with a
neutral score. Every fan-out is bounded by Options.MaxConcurrent.
*/
package reasoning
