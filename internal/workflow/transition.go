package workflow

import (
	"fmt"

	"github.com/MrJamesThe3rd/docflow/internal/client"
)

// transition returns the node that follows wc.Node. Every node and outcome is listed;
// anything else is a programming error surfaced as a run failure.
func transition(wc *Context) (Node, error) {
	financial := wc.category().IsFinancial()

	switch wc.Node {
	case NodeClassify:
		return NodeResolveClient, nil

	case NodeResolveClient:
		if wc.Outcome == nil {
			return NodeDone, nil
		}

		switch wc.Outcome.Kind {
		case client.OutcomeNoCandidates:
			return NodeReject, nil
		case client.OutcomeMultipleCandidates:
			return NodeRequestSelection, nil
		case client.OutcomeSingleCandidate:
			return NodeAutoAssign, nil
		case client.OutcomeAlreadyLinked:
			if financial {
				return NodeExtractFinancial, nil
			}

			return NodeDone, nil
		}

		return NodeDone, fmt.Errorf("unhandled client outcome %s", wc.Outcome.Kind)

	case NodeAutoAssign:
		if financial {
			return NodeExtractFinancial, nil
		}

		return NodeDone, nil

	case NodeReject, NodeRequestSelection, NodeExtractFinancial, NodeDone:
		return NodeDone, nil
	}

	return NodeDone, fmt.Errorf("no transition from node %s", wc.Node)
}
