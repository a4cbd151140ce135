/*
Package session serialises the events of each user and persists their conversation state.

Every event of a user runs inside Manager.WithLock, keyed by the external user id:
events of one user are processed one at a time while different users proceed in
parallel. An optional DistributedLocker extends the guarantee across replicas.
*/
package session
