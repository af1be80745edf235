// Package teams composes agents into a team that produces one structured result.
//
// A Team delegates the task to its members with an explicit Delegation,
// Sequential or FanOut, then asks the coordinator to merge the member
// contributions into the output type. The merged value is validated,
// a failure is reported as chatmodel.ErrSchemaViolation.
package teams
