package jobstore

// SetRenameFunc swaps the rename used by Move so tests can simulate crashes.
func SetRenameFunc(s *Store, fn func(oldpath, newpath string) error) {
	s.rename = fn
}

// SetLinkFunc swaps the hard link used by Create.
func SetLinkFunc(s *Store, fn func(oldname, newname string) error) {
	s.link = fn
}
