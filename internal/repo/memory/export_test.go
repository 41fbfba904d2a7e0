package memory

// passwordHash returns the stored hash for email.
func (r *UsersRepo) passwordHash(email string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return "", false
	}
	return r.items[id-1].PasswordHash, true
}
